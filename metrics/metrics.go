// Package metrics holds the prometheus instruments shared by the
// protocol servers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhive_connections_total",
			Help: "Total number of accepted connections",
		},
		[]string{"protocol"},
	)

	ConnectionsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailhive_connections_current",
			Help: "Current number of active connections",
		},
		[]string{"protocol"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhive_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"protocol", "result"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhive_deliveries_total",
			Help: "Total number of per-recipient delivery attempts",
		},
		[]string{"result"},
	)

	MessagesRetrieved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhive_messages_retrieved_total",
			Help: "Total number of messages streamed to POP3 clients",
		},
	)
)
