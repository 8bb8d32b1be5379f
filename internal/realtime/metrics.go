package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricSuperseded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "codecoach",
	Name:      "realtime_superseded_total",
	Help:      "Number of real-time requests replaced by a later request before they ran.",
})

func recordSuperseded() {
	metricSuperseded.Inc()
}
