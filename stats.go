package uplink

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess      = "success"
	statusNetworkError = "network_error"
	statusProtocol     = "protocol_error"
	statusNotOnWorker  = "not_on_worker"
)

// stats holds the uplink's own counters. A nil *stats is valid and
// records nothing.
type stats struct {
	cycles       prometheus.Counter
	submissions  *prometheus.CounterVec
	payloadBytes prometheus.Gauge
}

func newStats(reg prometheus.Registerer) *stats {
	s := &stats{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uplink_cycles_total",
			Help: "Number of submission cycles started by the scheduler",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uplink_submissions_total",
			Help: "Number of report submissions by outcome",
		}, []string{"status"}),
		payloadBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uplink_last_payload_bytes",
			Help: "Compressed size of the most recently submitted report",
		}),
	}

	if reg == nil {
		return s
	}

	s.cycles = registerOrReuse(reg, s.cycles).(prometheus.Counter)
	s.submissions = registerOrReuse(reg, s.submissions).(*prometheus.CounterVec)
	s.payloadBytes = registerOrReuse(reg, s.payloadBytes).(prometheus.Gauge)

	return s
}

// registerOrReuse registers c, returning the collector that was
// already registered under the same descriptor if there is one. Any
// other registration failure leaves c unregistered.
func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		return are.ExistingCollector
	}

	return c
}

func (s *stats) cycle() {
	if s == nil {
		return
	}
	s.cycles.Inc()
}

func (s *stats) submission(status string) {
	if s == nil {
		return
	}
	s.submissions.WithLabelValues(status).Inc()
}

func (s *stats) payload(size int) {
	if s == nil {
		return
	}
	s.payloadBytes.Set(float64(size))
}
