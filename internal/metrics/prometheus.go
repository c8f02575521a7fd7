package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lastword"

// PrometheusRecorder implements Recorder with Prometheus collectors
type PrometheusRecorder struct {
	runDuration   *prom.HistogramVec
	phaseResults  *prom.CounterVec
	checkIns      *prom.CounterVec
	lastActive    prom.Gauge
	finalSends    prom.Gauge
	storeDegraded prom.Gauge
}

// NewPrometheusRecorder creates and registers the collectors. A nil registry
// gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of scheduled checks by kind and outcome",
			Buckets:   prom.DefBuckets,
		}, []string{"kind", "outcome"}),
		phaseResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "phase_results_total",
			Help:      "Reminder and terminal phase results by status",
		}, []string{"phase", "status"}),
		checkIns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Check-in attempts by outcome",
		}, []string{"outcome"}),
		lastActive: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_active_timestamp_seconds",
			Help:      "Unix time of the last recorded check-in",
		}),
		finalSends: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "final_send_count",
			Help:      "Terminal notifications sent since the last check-in",
		}),
		storeDegraded: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "store_degraded",
			Help:      "1 when running on the in-memory fallback store",
		}),
	}

	reg.MustRegister(pr.runDuration, pr.phaseResults, pr.checkIns, pr.lastActive, pr.finalSends, pr.storeDegraded)
	return pr
}

func (p *PrometheusRecorder) ObserveRun(kind, outcome string, d time.Duration) {
	p.runDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhase(phase, status string) {
	p.phaseResults.WithLabelValues(phase, status).Inc()
}

func (p *PrometheusRecorder) IncCheckIn(outcome string) {
	p.checkIns.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetLastActive(ms int64) {
	p.lastActive.Set(float64(ms) / 1000)
}

func (p *PrometheusRecorder) SetFinalSendCount(n int) {
	p.finalSends.Set(float64(n))
}

func (p *PrometheusRecorder) SetStoreDegraded(degraded bool) {
	if degraded {
		p.storeDegraded.Set(1)
		return
	}
	p.storeDegraded.Set(0)
}

// NewRegistry returns a registry with the Go and process collectors attached
func NewRegistry() *prom.Registry {
	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// HTTPHandler serves the registry in the Prometheus exposition format
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
