package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Go-routine-4595/sensor-watch/model"
)

// Display prints every alarm event as a JSON line. It is the sink used when no
// external system is configured.
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

func NewDisplay() *Display {
	return NewDisplayWriter(os.Stdout)
}

func NewDisplayWriter(w io.Writer) *Display {
	return &Display{out: w}
}

func (d *Display) SendAlarm(_ context.Context, event model.AlarmEvent) error {
	var (
		buf []byte
		err error
	)

	buf, err = json.Marshal(event)
	if err != nil {
		return errors.Join(err, errors.New("failed to marshal event display.SendAlarm"))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = fmt.Fprintln(d.out, string(buf))
	return err
}
