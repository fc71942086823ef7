package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const shutdownTimeout = 5 * time.Second

type APIConfig struct {
	Listen string `yaml:"Listen"`
}

// IQuery is the read side of the pipeline.
type IQuery interface {
	Sensors() []model.SensorState
	Sensor(name string) (model.SensorState, bool)
	Series(name string) []model.Point
	Status() model.SystemStatus
	History() []string
}

type SeriesResponse struct {
	Sensor string        `json:"sensor"`
	Points []model.Point `json:"points"`
}

type StatusResponse struct {
	Status model.SystemStatus `json:"status"`
}

// API serves the current view of every sensor as JSON, plus /metrics.
type API struct {
	svc      IQuery
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

func NewAPI(svc IQuery, gatherer prometheus.Gatherer, logger zerolog.Logger) *API {
	return &API{svc: svc, gatherer: gatherer, logger: logger}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sensors", a.handleListSensors)
	mux.HandleFunc("GET /api/sensors/{name}/series", a.handleSeries)
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("GET /api/alarms", a.handleAlarms)
	if a.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// Start serves on conf.Listen until ctx is cancelled.
func (a *API) Start(ctx context.Context, wg *sync.WaitGroup, conf APIConfig) {
	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		a.logger.Info().Str("listen", conf.Listen).Msg("query api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("query api stopped")
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			a.logger.Error().Err(err).Msg("query api shutdown")
		}
	}()
}

func (a *API) handleListSensors(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.svc.Sensors())
}

func (a *API) handleSeries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	points := a.svc.Series(name)
	if points == nil {
		if _, ok := a.svc.Sensor(name); !ok {
			http.Error(w, "unknown sensor", http.StatusNotFound)
			return
		}
		points = []model.Point{}
	}
	a.writeJSON(w, SeriesResponse{Sensor: name, Points: points})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, StatusResponse{Status: a.svc.Status()})
}

func (a *API) handleAlarms(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.svc.History())
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error().Err(err).Msg("failed to write json response")
	}
}
