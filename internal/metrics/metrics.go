package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// EventsPublished — события, опубликованные в Kafka, по виду.
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Subsystem: "sink",
		Name:      "events_published_total",
		Help:      "Events published to Kafka by kind",
	}, []string{"kind"})

	// PublishErrors — ошибки публикации по виду события.
	PublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Subsystem: "sink",
		Name:      "publish_errors_total",
		Help:      "Errors while publishing events to Kafka",
	}, []string{"kind"})

	// CacheErrors — ошибки записи снимков стакана в Redis.
	CacheErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "collector",
		Subsystem: "sink",
		Name:      "orderbook_cache_errors_total",
		Help:      "Errors while caching order book snapshots",
	})

	// JournalErrors — ошибки записи в журнал PostgreSQL по виду события.
	JournalErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Subsystem: "sink",
		Name:      "journal_errors_total",
		Help:      "Errors while writing events to the journal",
	}, []string{"kind"})

	// Responses — ответы на команды подписки: success | failure.
	Responses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "collector",
		Subsystem: "subscriptions",
		Name:      "responses_total",
		Help:      "Responses to subscription commands by result",
	}, []string{"result"})

	// PendingRequests — команды без ответа сервера.
	PendingRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "collector",
		Subsystem: "subscriptions",
		Name:      "pending_requests",
		Help:      "Subscription commands awaiting a response",
	})
)

// Register регистрирует метрики один раз. nil — DefaultRegisterer.
func Register(r prometheus.Registerer) {
	once.Do(func() {
		if r == nil {
			r = prometheus.DefaultRegisterer
		}
		r.MustRegister(
			EventsPublished,
			PublishErrors,
			CacheErrors,
			JournalErrors,
			Responses,
			PendingRequests,
		)
	})
}
