// common/kafka/interface.go
//
// Пакет kafka задаёт минимальный контракт публикации и чтения, не привязанный к Sarama.
package kafka

import (
	"context"
	"time"
)

// Producer публикует сообщения в Kafka.
type Producer interface {
	// Publish доставляет сообщение согласно RequiredAcks; внутри возможны
	// повторы по стратегии back-off.
	Publish(ctx context.Context, topic string, key, value []byte) error
	// Ping проверяет достижимость кластера (обновление метаданных).
	Ping(ctx context.Context) error
	Close() error
}

// Message — прочитанное сообщение.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte
}

// Consumer читает топики в составе consumer group.
type Consumer interface {
	// Consume блокируется до отмены ctx. Ошибка handler логируется,
	// сообщение при этом не помечается прочитанным.
	Consume(ctx context.Context, topics []string, handler func(ctx context.Context, msg *Message) error) error
	Close() error
}
