// Package metrics exposes prometheus counters for the tracker.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	CheckinsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_checkins_total",
		Help: "Task records committed to the ledger, by proof kind",
	}, []string{"proof"})

	DuplicateRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_duplicate_records_total",
		Help: "Ledger inserts rejected by the (user, date) constraint",
	}, []string{"action"})

	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_passes_total",
		Help: "Pass and force majeure records, by kind",
	}, []string{"action"})

	MissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habit_misses_total",
		Help: "Check-ins that followed a gap of at least one day",
	})

	LevelUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habit_level_ups_total",
		Help: "Level transitions",
	})

	AchievementsGrantedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_achievements_granted_total",
		Help: "Achievements granted, by achievement id",
	}, []string{"achievement"})

	StorageRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_storage_retries_total",
		Help: "Reconnect attempts after a lost database connection, by operation",
	}, []string{"op"})

	HandlerErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habit_handler_errors_total",
		Help: "Errors swallowed at the event boundary, by operation",
	}, []string{"op"})
)

// Server serves /metrics.
type Server struct {
	srv *http.Server
}

// NewServer builds a metrics server listening on addr.
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("Metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
