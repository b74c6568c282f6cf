//nolint:gochecknoglobals
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedemptionsTotal 兑换结果计数，outcome: success | rate_limited | not_found | not_active | race_lost | destination_missing | storage_error
	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linksharing",
		Name:      "redemptions_total",
		Help:      "The total number of invite redemption attempts by outcome",
	}, []string{"outcome"})

	// LinkTransitionsTotal 管理端状态迁移计数
	LinkTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linksharing",
		Name:      "link_transitions_total",
		Help:      "The total number of administrative link transitions",
	}, []string{"event"})

	// InvitesSentTotal 邀请通知发送计数，result: ok | error | disabled
	InvitesSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linksharing",
		Name:      "invites_sent_total",
		Help:      "The total number of invite notifications sent",
	}, []string{"result"})

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "linksharing",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "The latency of the HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)
