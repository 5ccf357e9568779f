package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	notifyDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_notify_delivered_total",
		Help: "Realtime events delivered to a connected channel.",
	})
	notifyDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_notify_dropped_total",
		Help: "Realtime events dropped (user offline or send failed).",
	})
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_ws_connections",
		Help: "Currently attached websocket connections.",
	})
)

func init() {
	prometheus.MustRegister(notifyDelivered, notifyDropped, wsConnections)
}
