package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesDeleted prometheus.Counter
	MailboxesExpired prometheus.Counter

	// 邮件指标
	MessagesReceived prometheus.Counter
	MessagesDeleted  prometheus.Counter
	MessagesRejected prometheus.Counter

	// 用户指标
	UsersRegistered prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_mailboxes_deleted_total",
				Help: "Total number of mailboxes deleted",
			},
		),

		MailboxesExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_mailboxes_expired_total",
				Help: "Total number of mailboxes removed by expiry sweep",
			},
		),

		MessagesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_messages_received_total",
				Help: "Total number of messages received over SMTP",
			},
		),

		MessagesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_messages_deleted_total",
				Help: "Total number of messages deleted",
			},
		),

		MessagesRejected: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_messages_rejected_total",
				Help: "Total number of messages rejected for unknown recipients",
			},
		),

		UsersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vmail_users_registered_total",
				Help: "Total number of registered users",
			},
		),
	}
}

// Handler 返回 Prometheus 指标处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
