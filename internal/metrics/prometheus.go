package metrics

import (
	"net/http"

	"chatrelay/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	outcomes *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	pending  *prometheus.GaugeVec
}

var (
	outcomeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_dispatch_outcomes_total",
		Help: "Dispatch outcomes by instance and result",
	}, []string{"instance", "outcome"})
	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatrelay_queue_jobs",
		Help: "Outbound queue depth by state",
	}, []string{"queue", "state"})
	pendingDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chatrelay_pending_messages",
		Help: "Deferred messages waiting on reachability, by instance",
	}, []string{"instance"})
)

func NewPrometheusObserver() QueueObserver {
	return &prometheusObserver{
		outcomes: outcomeCounter,
		depth:    queueDepth,
		pending:  pendingDepth,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) RecordSent(instanceID string) {
	p.outcomes.WithLabelValues(instanceID, "sent").Inc()
}

func (p *prometheusObserver) RecordRetry(instanceID string) {
	p.outcomes.WithLabelValues(instanceID, "retry").Inc()
}

func (p *prometheusObserver) RecordFailed(instanceID string) {
	p.outcomes.WithLabelValues(instanceID, "failed").Inc()
}

func (p *prometheusObserver) RecordDeferred(instanceID string) {
	p.outcomes.WithLabelValues(instanceID, "deferred").Inc()
}

func (p *prometheusObserver) PublishSnapshot(queue string, counts model.QueueCounts, pending model.PendingSummary) {
	p.depth.WithLabelValues(queue, "waiting").Set(float64(counts.Waiting))
	p.depth.WithLabelValues(queue, "active").Set(float64(counts.Active))
	p.depth.WithLabelValues(queue, "completed").Set(float64(counts.Completed))
	p.depth.WithLabelValues(queue, "failed").Set(float64(counts.Failed))
	p.depth.WithLabelValues(queue, "delayed").Set(float64(counts.Delayed))

	p.pending.Reset()
	for instance, n := range pending.PerInstance {
		p.pending.WithLabelValues(instance).Set(float64(n))
	}
}
