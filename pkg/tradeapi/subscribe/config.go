package subscribe

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
)

// Значения по умолчанию.
const (
	DefaultKeepAliveInterval  = 120 * time.Second
	DefaultKeepAliveRequestID = "keepAliveRequest"
	DefaultWorkers            = 4
	DefaultDispatchBuffer     = 1024
)

// Config — параметры движка подписок.
type Config struct {
	// KeepAliveInterval — период служебного пинга потока.
	KeepAliveInterval time.Duration `mapstructure:"keepalive_interval"`
	// KeepAliveRequestID зарезервирован: пользовательские команды
	// с таким id отклоняются.
	KeepAliveRequestID string `mapstructure:"keepalive_request_id"`
	// Workers — число горутин, вызывающих обработчики.
	Workers int `mapstructure:"workers"`
	// DispatchBuffer — ёмкость очереди событий между чтением потока
	// и обработчиками. При переполнении чтение ждёт.
	DispatchBuffer int `mapstructure:"dispatch_buffer"`
	// Clock подменяется в тестах.
	Clock clock.Clock `mapstructure:"-"`
}

func (c *Config) applyDefaults() {
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if c.KeepAliveRequestID == "" {
		c.KeepAliveRequestID = DefaultKeepAliveRequestID
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.DispatchBuffer <= 0 {
		c.DispatchBuffer = DefaultDispatchBuffer
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.KeepAliveRequestID) == "" {
		return fmt.Errorf("subscribe: keepalive request id is blank")
	}
	return nil
}
