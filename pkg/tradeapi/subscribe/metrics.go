package subscribe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	eventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "received_total",
		Help: "Events read from the GetEvents stream",
	}, []string{"kind"})

	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "dropped_total",
		Help: "Events not delivered to handlers",
	}, []string{"reason"})

	handlerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "handler_errors_total",
		Help: "Handler calls that returned an error or panicked",
	}, []string{"kind"})

	commandsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "commands_sent_total",
		Help: "Commands written to the GetEvents stream",
	}, []string{"kind"})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "command_queue_depth",
		Help: "Commands waiting to be written",
	})

	dispatchBackpressure = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "dispatch_backpressure_total",
		Help: "Times the reader waited for a free dispatch slot",
	})

	streamErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tradeapi", Subsystem: "events", Name: "stream_errors_total",
		Help: "Stream failures by stage",
	}, []string{"stage"})
)

// RegisterMetrics регистрирует метрики движка один раз. Уже
// зарегистрированные коллекторы пропускаются; конфликт имён или
// описаний возвращается ошибкой при каждом вызове.
func RegisterMetrics(r prometheus.Registerer) error {
	metricsOnce.Do(func() {
		if r == nil {
			r = prometheus.DefaultRegisterer
		}
		metricsErr = registerMetrics(r)
	})
	return metricsErr
}

func registerMetrics(r prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{
		eventsReceived, eventsDropped, handlerErrors,
		commandsSent, queueDepth, dispatchBackpressure, streamErrors,
	} {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("subscribe: register metrics: %w", errors.Join(errs...))
	}
	return nil
}
