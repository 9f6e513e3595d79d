package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_feed_events_total",
			Help: "Change events received per channel",
		},
		[]string{"channel"},
	)

	connectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_feed_connects_total",
			Help: "Successful channel connects",
		},
	)

	connectFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_feed_connect_failures_total",
			Help: "Failed channel connect attempts",
		},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inbox_feed_reconnects_total",
			Help: "Automatic reconnect attempts",
		},
	)
)
