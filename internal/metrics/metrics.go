// Package metrics provides a pluggable recorder for packet outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records packet processing outcomes.
type Recorder interface {
	Forwarded()
	Dropped()
	Nacked()
	Shortcut()
}

type dummy struct{}

// NewDummy constructs a new dummy metrics recorder.
func NewDummy() Recorder {
	return &dummy{}
}

func (m *dummy) Forwarded() {}
func (m *dummy) Dropped()   {}
func (m *dummy) Nacked()    {}
func (m *dummy) Shortcut()  {}

type prom struct {
	forwardedCount prometheus.Counter
	droppedCount   prometheus.Counter
	nackedCount    prometheus.Counter
	shortcutCount  prometheus.Counter
}

// NewPrometheus constructs a new Prometheus metrics recorder.
func NewPrometheus(service string) Recorder {
	return &prom{
		forwardedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: service + "_forwarded_total",
			Help: "The total number of packets forwarded to a neighbor",
		}),
		droppedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: service + "_dropped_total",
			Help: "The total number of packets deliberately discarded",
		}),
		nackedCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: service + "_nacked_total",
			Help: "The total number of negative acknowledgments generated",
		}),
		shortcutCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: service + "_shortcut_total",
			Help: "The total number of control packets handed to the controller",
		}),
	}
}

func (m *prom) Forwarded() { m.forwardedCount.Inc() }
func (m *prom) Dropped()   { m.droppedCount.Inc() }
func (m *prom) Nacked()    { m.nackedCount.Inc() }
func (m *prom) Shortcut()  { m.shortcutCount.Inc() }
