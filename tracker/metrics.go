package tracker

import "github.com/prometheus/client_golang/prometheus"

var announces = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "livestream_tracker_announces_total",
	Help: "Announce requests sent to HTTP trackers.",
})

func init() {
	prometheus.MustRegister(announces)
}
