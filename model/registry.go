package model

import "sort"

type SensorID int

// UnknownSensor is what Resolve returns for a name with no configured bounds.
const UnknownSensor SensorID = -1

// Registry is the closed set of configured sensors. It is built once from the
// configuration and never changes afterwards.
type Registry struct {
	names  []string
	bounds []Bounds
	ids    map[string]SensorID
}

func NewRegistry(ranges map[string]Bounds) *Registry {
	var (
		names []string
		r     *Registry
	)

	for name := range ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	r = &Registry{
		names:  names,
		bounds: make([]Bounds, len(names)),
		ids:    make(map[string]SensorID, len(names)),
	}
	for i, name := range names {
		r.bounds[i] = ranges[name]
		r.ids[name] = SensorID(i)
	}
	return r
}

func (r *Registry) Resolve(name string) SensorID {
	if id, ok := r.ids[name]; ok {
		return id
	}
	return UnknownSensor
}

func (r *Registry) Bounds(id SensorID) (Bounds, bool) {
	if id < 0 || int(id) >= len(r.bounds) {
		return Bounds{}, false
	}
	return r.bounds[id], true
}

func (r *Registry) Name(id SensorID) string {
	if id < 0 || int(id) >= len(r.names) {
		return ""
	}
	return r.names[id]
}

func (r *Registry) Len() int {
	return len(r.names)
}

// Names returns the configured sensor names in SensorID order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
