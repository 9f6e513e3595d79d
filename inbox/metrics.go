package inbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	conversationsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inbox_conversations",
		Help: "Conversations in the merged list.",
	})
	unreadGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inbox_unread_total",
		Help: "Unread messages across all conversations.",
	})
	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inbox_sends_total",
		Help: "Message send attempts by domain.",
	}, []string{"domain"})
	sendFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inbox_send_failures_total",
		Help: "Failed message sends by domain.",
	}, []string{"domain"})
)
