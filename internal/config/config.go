// Package config описывает конфигурацию events-collector.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/YaganovValera/finam-trade-client/common/backoff"
	"github.com/YaganovValera/finam-trade-client/common/configloader"
	"github.com/YaganovValera/finam-trade-client/internal/journal"
	"github.com/YaganovValera/finam-trade-client/pkg/finam"
)

// EnvPrefix — префикс переменных окружения: FINAM_COLLECTOR_FINAM_TOKEN и т.п.
const EnvPrefix = "FINAM_COLLECTOR"

func init() {
	configloader.RegisterDefaults("service_name", "events-collector")
	configloader.RegisterDefaults("service_version", "v1.0.0")

	// Finam
	configloader.RegisterDefaults("finam.endpoint", "trade-api.finam.ru:443")
	configloader.RegisterDefaults("finam.token", "")
	configloader.RegisterDefaults("finam.insecure", false)
	configloader.RegisterDefaults("finam.user_agent", "events-collector")
	configloader.RegisterDefaults("finam.stop_on_rpc_error", true)
	configloader.RegisterDefaults("finam.events.keepalive_interval", "120s")
	configloader.RegisterDefaults("finam.events.keepalive_request_id", "keepAliveRequest")
	configloader.RegisterDefaults("finam.events.workers", 4)
	configloader.RegisterDefaults("finam.events.dispatch_buffer", 1024)

	// Subscriptions
	configloader.RegisterDefaults("subscriptions.client_ids", []string{})
	configloader.RegisterDefaults("subscriptions.include_trades", true)
	configloader.RegisterDefaults("subscriptions.include_orders", true)
	configloader.RegisterDefaults("subscriptions.order_books", []string{})

	// Kafka
	configloader.RegisterDefaults("kafka.brokers", []string{})
	configloader.RegisterDefaults("kafka.required_acks", "all")
	configloader.RegisterDefaults("kafka.timeout", "15s")
	configloader.RegisterDefaults("kafka.compression", "none")
	configloader.RegisterDefaults("kafka.topics.orders", "finam.orders")
	configloader.RegisterDefaults("kafka.topics.trades", "finam.trades")
	configloader.RegisterDefaults("kafka.topics.orderbooks", "finam.orderbooks")
	configloader.RegisterDefaults("kafka.topics.portfolios", "finam.portfolios")

	// Redis: пустой URL отключает кэш стаканов
	configloader.RegisterDefaults("redis.url", "")
	configloader.RegisterDefaults("redis.ttl", "10m")
	configloader.RegisterDefaults("redis.key_prefix", "")

	// Postgres: пустой DSN отключает журнал сделок и заявок
	configloader.RegisterDefaults("postgres.dsn", "")
	configloader.RegisterDefaults("postgres.max_conns", 4)
	configloader.RegisterDefaults("postgres.conn_max_lifetime", "1h")
	configloader.RegisterDefaults("postgres.connect_timeout", "10s")

	// Telemetry
	configloader.RegisterDefaults("telemetry.otel_endpoint", "")
	configloader.RegisterDefaults("telemetry.insecure", false)
	configloader.RegisterDefaults("telemetry.sampler", 1.0)

	// Logging
	configloader.RegisterDefaults("logging.level", "info")
	configloader.RegisterDefaults("logging.dev_mode", false)

	// HTTP
	configloader.RegisterDefaults("http.addr", ":8080")
	configloader.RegisterDefaults("http.read_timeout", "10s")
	configloader.RegisterDefaults("http.write_timeout", "15s")
	configloader.RegisterDefaults("http.idle_timeout", "60s")
	configloader.RegisterDefaults("http.shutdown_timeout", "5s")
	configloader.RegisterDefaults("http.metrics_path", "/metrics")
	configloader.RegisterDefaults("http.healthz_path", "/healthz")
	configloader.RegisterDefaults("http.readyz_path", "/readyz")
}

// Config — все настройки сервиса.
type Config struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`

	Finam         finam.Config   `mapstructure:"finam"`
	Subscriptions Subscriptions  `mapstructure:"subscriptions"`
	Kafka         KafkaConfig    `mapstructure:"kafka"`
	Redis         RedisConfig    `mapstructure:"redis"`
	Postgres      journal.Config `mapstructure:"postgres"`
	Telemetry     Telemetry      `mapstructure:"telemetry"`
	Logging       Logging        `mapstructure:"logging"`
	HTTP          HTTPConfig     `mapstructure:"http"`
}

// Subscriptions — что подписывать при старте.
type Subscriptions struct {
	ClientIDs     []string `mapstructure:"client_ids"`
	IncludeTrades bool     `mapstructure:"include_trades"`
	IncludeOrders bool     `mapstructure:"include_orders"`
	// OrderBooks — инструменты в формате "BOARD:CODE".
	OrderBooks []string `mapstructure:"order_books"`
}

// Instrument — площадка и код инструмента.
type Instrument struct {
	Board string
	Code  string
}

func (i Instrument) String() string { return i.Board + ":" + i.Code }

// ParseInstrument разбирает "BOARD:CODE".
func ParseInstrument(s string) (Instrument, error) {
	board, code, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || board == "" || code == "" {
		return Instrument{}, fmt.Errorf("invalid instrument %q, want BOARD:CODE", s)
	}
	return Instrument{Board: board, Code: code}, nil
}

// Instruments возвращает разобранный список стаканов.
func (s Subscriptions) Instruments() ([]Instrument, error) {
	out := make([]Instrument, 0, len(s.OrderBooks))
	for _, raw := range s.OrderBooks {
		in, err := ParseInstrument(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// KafkaConfig — настройки продьюсера и топики событий.
type KafkaConfig struct {
	Brokers        []string       `mapstructure:"brokers"`
	RequiredAcks   string         `mapstructure:"required_acks"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	Compression    string         `mapstructure:"compression"`
	FlushFrequency time.Duration  `mapstructure:"flush_frequency"`
	FlushMessages  int            `mapstructure:"flush_messages"`
	Backoff        backoff.Config `mapstructure:"backoff"`
	Topics         Topics         `mapstructure:"topics"`
}

// Topics — топик на каждый вид события.
type Topics struct {
	Orders     string `mapstructure:"orders"`
	Trades     string `mapstructure:"trades"`
	OrderBooks string `mapstructure:"orderbooks"`
	Portfolios string `mapstructure:"portfolios"`
}

type RedisConfig struct {
	URL       string         `mapstructure:"url"`
	TTL       time.Duration  `mapstructure:"ttl"`
	KeyPrefix string         `mapstructure:"key_prefix"`
	Backoff   backoff.Config `mapstructure:"backoff"`
}

// Enabled — кэш стаканов включён.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// JournalEnabled — задан DSN журнала.
func (c *Config) JournalEnabled() bool { return c.Postgres.DSN != "" }

type Telemetry struct {
	OTLPEndpoint string  `mapstructure:"otel_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SamplerRatio float64 `mapstructure:"sampler"`
}

type Logging struct {
	Level   string `mapstructure:"level"`
	DevMode bool   `mapstructure:"dev_mode"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	HealthzPath     string        `mapstructure:"healthz_path"`
	ReadyzPath      string        `mapstructure:"readyz_path"`
}

// Load читает defaults → YAML → ENV и валидирует результат.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := configloader.Load(path, EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFinam читает только секцию finam: для одноразовых унарных команд
// остальные секции не нужны.
func LoadFinam(path string) (*finam.Config, error) {
	var cfg struct {
		Finam finam.Config `mapstructure:"finam"`
	}
	if err := configloader.Load(path, EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	if cfg.Finam.Transport.Token == "" {
		return nil, fmt.Errorf("finam.token is required")
	}
	return &cfg.Finam, nil
}

// LoadKafka читает только секцию kafka: её достаточно для чтения топиков.
func LoadKafka(path string) (*KafkaConfig, error) {
	var cfg struct {
		Kafka KafkaConfig `mapstructure:"kafka"`
	}
	if err := configloader.Load(path, EnvPrefix, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka.brokers is required")
	}
	return &cfg.Kafka, nil
}

// All возвращает топики в фиксированном порядке.
func (t Topics) All() []string {
	return []string{t.Orders, t.Trades, t.OrderBooks, t.Portfolios}
}

// Validate проверяет обязательные поля.
func (c *Config) Validate() error {
	if c.ServiceName == "" || c.ServiceVersion == "" {
		return fmt.Errorf("service_name and service_version are required")
	}

	// Finam
	if c.Finam.Transport.Endpoint == "" {
		return fmt.Errorf("finam.endpoint is required")
	}
	if c.Finam.Transport.Token == "" {
		return fmt.Errorf("finam.token is required")
	}

	// Subscriptions
	s := c.Subscriptions
	if len(s.ClientIDs) == 0 && len(s.OrderBooks) == 0 {
		return fmt.Errorf("subscriptions: client_ids or order_books must be set")
	}
	if len(s.ClientIDs) > 0 && !s.IncludeTrades && !s.IncludeOrders {
		return fmt.Errorf("subscriptions: include_trades or include_orders must be true")
	}
	if _, err := s.Instruments(); err != nil {
		return fmt.Errorf("subscriptions.order_books: %w", err)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	t := c.Kafka.Topics
	if t.Orders == "" || t.Trades == "" || t.OrderBooks == "" || t.Portfolios == "" {
		return fmt.Errorf("kafka.topics: all topics are required")
	}

	if c.JournalEnabled() && c.Postgres.MaxConns < 0 {
		return fmt.Errorf("postgres.max_conns must be >= 0")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error]")
	}

	if !strings.HasPrefix(c.HTTP.ReadyzPath, "/") {
		return fmt.Errorf("http.readyz_path must start with '/'")
	}
	return nil
}

// Redacted скрывает токен и DSN (в нём пароль) для печати конфига.
func (c *Config) Redacted() interface{} {
	cp := *c
	if cp.Finam.Transport.Token != "" {
		cp.Finam.Transport.Token = "***"
	}
	if cp.Postgres.DSN != "" {
		cp.Postgres.DSN = "***"
	}
	return cp
}
