package redis

import "github.com/VictoriaMetrics/metrics"

// Process-wide connection counters, exposed in Prometheus text form via
// metrics.WritePrometheus (the perf command dumps them after a run)
var (
	metricConnects     = metrics.NewCounter(`akv_connects_total`)
	metricDisconnects  = metrics.NewCounter(`akv_disconnects_total`)
	metricCommandsSent = metrics.NewCounter(`akv_commands_sent_total`)
	metricReplies      = metrics.NewCounter(`akv_replies_total`)
	metricErrorReplies = metrics.NewCounter(`akv_error_replies_total`)
)
