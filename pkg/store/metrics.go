package store

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_store_messages_saved_total",
		Help: "Messages persisted to the store.",
	})
	conversationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_store_conversations_created_total",
		Help: "Conversations created.",
	})
	storeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatd_store_errors_total",
		Help: "Failed store operations.",
	})
)

func init() {
	prometheus.MustRegister(messagesSaved, conversationsCreated, storeErrors)
}
