package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Refresh metrics
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_refreshes_total",
			Help: "Total refresh cycles by outcome",
		},
		[]string{"result"}, // success, unavailable, timeout, discarded
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watchdog_fetch_duration_seconds",
			Help:    "Usage log store query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	// Record metrics
	RecordsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_records_dropped_total",
			Help: "Usage log records dropped during normalization",
		},
		[]string{"reason"},
	)

	// Snapshot metrics
	SnapshotEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchdog_snapshot_entries",
			Help: "Number of entries in the most recently published snapshot",
		},
	)

	TrackedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watchdog_snapshot_tracked_seconds",
			Help: "Sum of time spent across the most recently published snapshot",
		},
	)

	// Store metrics
	WindowCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchdog_window_cache_lookups_total",
			Help: "Window metadata cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		RefreshesTotal,
		FetchDuration,
		RecordsDropped,
		SnapshotEntries,
		TrackedSeconds,
		WindowCacheLookups,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	mux      *http.ServeMux
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		mux:    mux,
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the HTTP handler serving /metrics and /health
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// HandleFunc mounts an additional route next to /metrics and /health.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.mux.HandleFunc(pattern, handler)
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
