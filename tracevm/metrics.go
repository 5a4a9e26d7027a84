// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"time"

	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks controller activity. A nil *Metrics records nothing.
type Metrics struct {
	executions    *prometheus.CounterVec
	rejected      prometheus.Counter
	duration      prometheus.Histogram
	ticks         prometheus.Counter
	notifications prometheus.Counter
}

// NewMetrics creates the controller metrics and registers them with
// [registerer].
func NewMetrics(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions",
			Help:      "Number of finished executions by outcome",
		}, []string{"outcome"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_rejected",
			Help:      "Number of executions rejected because another was pending",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time spent waiting on the executor",
			Buckets:   prometheus.DefBuckets,
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playback_ticks",
			Help:      "Number of auto-advance ticks handled",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "view_notifications",
			Help:      "Number of times views were pushed a frame",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.executions),
		registerer.Register(m.rejected),
		registerer.Register(m.duration),
		registerer.Register(m.ticks),
		registerer.Register(m.notifications),
	)
	return m, errs.Err
}

func (m *Metrics) executionFinished(success bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.executions.WithLabelValues(outcome).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) executionRejected() {
	if m != nil {
		m.rejected.Inc()
	}
}

func (m *Metrics) tick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Metrics) notified() {
	if m != nil {
		m.notifications.Inc()
	}
}
