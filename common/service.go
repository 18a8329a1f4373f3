// common/service.go
package common

import (
	"github.com/YaganovValera/finam-trade-client/common/backoff"
	producer "github.com/YaganovValera/finam-trade-client/common/kafka/producer"
)

// ServiceNameKey — ключ лейбла для метрик всех подсистем.
const ServiceNameKey = "service"

// InitServiceName задаёт единое имя сервиса для меток back-off и Kafka-producer.
// Вызывается один раз при старте до первой публикации.
func InitServiceName(name string) {
	backoff.SetServiceLabel(name)
	producer.SetServiceLabel(name)
}
