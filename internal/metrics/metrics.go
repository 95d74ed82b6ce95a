// Package metrics exposes bot activity and on-chain state in the
// Prometheus exposition format.
package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valory-xyz/triton-bot/internal/logging"
	"github.com/valory-xyz/triton-bot/internal/util"
)

// Collector registers all bot metrics in a dedicated registry so they
// do not interfere with the default global registry.
type Collector struct {
	registry *prometheus.Registry

	commandCount *prometheus.CounterVec
	rpcErrors    prometheus.Counter
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec

	accruedRewards *prometheus.GaugeVec
	mechRequests   *prometheus.GaugeVec
	nativeBalance  *prometheus.GaugeVec

	goroutineCount prometheus.Gauge
	uptimeSeconds  prometheus.Gauge

	startTime time.Time
}

// NewCollector creates a collector with all metrics registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	commandCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triton",
		Name:      "commands_processed_total",
		Help:      "Total number of chat commands processed.",
	}, []string{"command"})

	rpcErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "triton",
		Name:      "rpc_errors_total",
		Help:      "Total number of failed RPC reads and transactions.",
	})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triton",
		Name:      "job_runs_total",
		Help:      "Total number of scheduled job runs by outcome.",
	}, []string{"job", "status"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "triton",
		Name:      "job_duration_seconds",
		Help:      "Scheduled job run time.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"job"})

	accruedRewards := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "triton",
		Name:      "accrued_rewards_olas",
		Help:      "Unclaimed staking rewards per service in OLAS.",
	}, []string{"service"})

	mechRequests := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "triton",
		Name:      "mech_requests_epoch",
		Help:      "Mech requests made in the current epoch per service.",
	}, []string{"service"})

	nativeBalance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "triton",
		Name:      "balance_xdai",
		Help:      "Native balance per tracked account in xDAI.",
	}, []string{"service", "account"})

	goroutineCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "triton",
		Name:      "goroutine_count",
		Help:      "Number of goroutines.",
	})

	uptimeSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "triton",
		Name:      "uptime_seconds",
		Help:      "Time since the bot started in seconds.",
	})

	reg.MustRegister(commandCount)
	reg.MustRegister(rpcErrors)
	reg.MustRegister(jobRuns)
	reg.MustRegister(jobDuration)
	reg.MustRegister(accruedRewards)
	reg.MustRegister(mechRequests)
	reg.MustRegister(nativeBalance)
	reg.MustRegister(goroutineCount)
	reg.MustRegister(uptimeSeconds)

	return &Collector{
		registry:       reg,
		commandCount:   commandCount,
		rpcErrors:      rpcErrors,
		jobRuns:        jobRuns,
		jobDuration:    jobDuration,
		accruedRewards: accruedRewards,
		mechRequests:   mechRequests,
		nativeBalance:  nativeBalance,
		goroutineCount: goroutineCount,
		uptimeSeconds:  uptimeSeconds,
		startTime:      time.Now(),
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCommand counts one processed chat command.
func (c *Collector) RecordCommand(command string) {
	c.commandCount.WithLabelValues(command).Inc()
}

// RecordRPCError counts one failed RPC interaction.
func (c *Collector) RecordRPCError() {
	c.rpcErrors.Inc()
}

// RecordJobRun counts a job run and observes its duration.
func (c *Collector) RecordJobRun(job string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.jobRuns.WithLabelValues(job, status).Inc()
	c.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// SetAccruedRewards sets the unclaimed reward gauge for a service.
func (c *Collector) SetAccruedRewards(service string, olas float64) {
	c.accruedRewards.WithLabelValues(service).Set(olas)
}

// SetMechRequests sets the epoch request gauge for a service.
func (c *Collector) SetMechRequests(service string, count uint64) {
	c.mechRequests.WithLabelValues(service).Set(float64(count))
}

// SetNativeBalance sets the xDAI balance gauge for one tracked account.
func (c *Collector) SetNativeBalance(service, account string, xdai float64) {
	c.nativeBalance.WithLabelValues(service, account).Set(xdai)
}

// sync refreshes the runtime gauges before a scrape.
func (c *Collector) sync() {
	c.goroutineCount.Set(float64(runtime.NumGoroutine()))
	c.uptimeSeconds.Set(time.Since(c.startTime).Seconds())
}

// Handler returns an http.Handler serving the exposition format. Runtime
// gauges are refreshed on each scrape.
func (c *Collector) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.sync()
		promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Server wraps an HTTP listener exposing /metrics.
type Server struct {
	srv *http.Server
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr string, collector *Collector) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	util.SafeGo("metrics-server", func() {
		logging.Info("metrics server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("metrics server failed", logging.Err(err))
		}
	})
}

// Stop shuts the listener down, waiting for in-flight scrapes.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
