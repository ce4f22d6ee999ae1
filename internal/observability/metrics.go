package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/evoplanner-backend/internal/domain"
	"github.com/yungbote/evoplanner-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests      *CounterVec
	apiLatency       *HistogramVec
	dispatches       *CounterVec
	notifications    *CounterVec
	materializations *HistogramVec
	triggers         *CounterVec
	sweeps           *CounterVec
	jobsByStatus     *GaugeVec
	queueDepth       *GaugeVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide metrics, or nil when metrics are disabled. Every method is
// nil-safe so call sites never need to check.
func Current() *Metrics {
	return instance
}

func Init() *Metrics {
	initOnce.Do(func() {
		instance = NewMetrics()
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("evo_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"evo_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		dispatches:    NewCounterVec("evo_job_dispatches_total", "Solver job dispatch attempts by result.", []string{"result"}),
		notifications: NewCounterVec("evo_progress_notifications_total", "Progress notifications by listener outcome.", []string{"outcome"}),
		materializations: NewHistogramVec(
			"evo_materialization_duration_seconds",
			"Schedule materialization latency by status.",
			[]string{"status"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		triggers:     NewCounterVec("evo_optimization_triggers_total", "Optimization rounds started by trigger reason.", []string{"reason"}),
		sweeps:       NewCounterVec("evo_maintenance_sweep_rows_total", "Rows changed by the maintenance sweep.", []string{"kind"}),
		jobsByStatus: NewGaugeVec("evo_optimization_jobs", "Optimization jobs by status.", []string{"status"}),
		queueDepth:   NewGaugeVec("evo_solver_queue_depth", "Messages waiting in the solver job queue.", []string{"queue"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.dispatches, m.notifications, m.materializations,
		m.triggers, m.sweeps,
		m.jobsByStatus, m.queueDepth,
	}
	for _, wr := range writers {
		if err := wr.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

// IncDispatch counts one dispatch attempt: queued, publish_failed, or rejected.
func (m *Metrics) IncDispatch(result string) {
	if m == nil {
		return
	}
	m.dispatches.Inc(result)
}

func (m *Metrics) IncNotification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.Inc(outcome)
}

func (m *Metrics) ObserveMaterialization(status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.materializations.Observe(dur.Seconds(), status)
}

func (m *Metrics) IncTrigger(reason string) {
	if m == nil {
		return
	}
	m.triggers.Inc(reason)
}

func (m *Metrics) AddSweep(archived, orphansFailed int) {
	if m == nil {
		return
	}
	m.sweeps.Add(float64(archived), "recruitments_archived")
	m.sweeps.Add(float64(orphansFailed), "orphan_jobs_failed")
}

// CollectJobStatuses refreshes the per-status job gauge from the database.
func (m *Metrics) CollectJobStatuses(ctx context.Context, db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.WithContext(ctx).
		Model(&types.OptimizationJob{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range types.JobStatuses {
		m.jobsByStatus.Set(0, s)
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.Status)
		if status == "" {
			status = "unknown"
		}
		m.jobsByStatus.Set(float64(row.Count), status)
	}
	return nil
}

// StartCollectors polls job counts and the solver queue length every interval until ctx ends.
func (m *Metrics) StartCollectors(
	ctx context.Context,
	log *logger.Logger,
	db *gorm.DB,
	queue string,
	queueLen func(ctx context.Context) (int64, error),
	interval time.Duration,
) {
	if m == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := m.CollectJobStatuses(ctx, db); err != nil && log != nil {
				log.Warn("metrics: job status query failed", "error", err)
			}
			if queueLen == nil {
				continue
			}
			n, err := queueLen(ctx)
			if err != nil {
				if log != nil {
					log.Warn("metrics: queue length query failed", "error", err, "queue", queue)
				}
				continue
			}
			m.queueDepth.Set(float64(n), queue)
		}
	}()
}
