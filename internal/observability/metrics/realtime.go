package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RealtimeChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_channel_state",
			Help: "Realtime channel state (0=disconnected, 1=connecting, 2=connected)",
		},
		[]string{"channel"},
	)

	RealtimeConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_connect_attempts_total",
			Help: "Total number of realtime dial attempts",
		},
		[]string{"channel", "result"},
	)

	RealtimeReconnectsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_reconnects_scheduled_total",
			Help: "Total number of reconnects scheduled by the backoff policy",
		},
		[]string{"channel"},
	)

	RealtimeReconnectsExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_reconnects_exhausted_total",
			Help: "Total number of times a channel gave up reconnecting",
		},
		[]string{"channel"},
	)

	RealtimeMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_total",
			Help: "Total number of inbound realtime messages by kind",
		},
		[]string{"channel", "kind"},
	)

	RealtimeMalformedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_malformed_messages_total",
			Help: "Total number of inbound realtime messages dropped as malformed",
		},
		[]string{"channel"},
	)

	RealtimeListenerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_listener_panics_total",
			Help: "Total number of recovered listener panics",
		},
		[]string{"channel"},
	)

	RealtimeSendsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_sends_dropped_total",
			Help: "Total number of sends dropped because the channel was not connected",
		},
		[]string{"channel"},
	)

	RealtimeListeners = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_listeners",
			Help: "Number of listeners registered per channel",
		},
		[]string{"channel"},
	)
)
