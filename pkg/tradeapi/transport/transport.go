// Package transport открывает gRPC-соединение с Trade API и даёт
// типизированный доступ к потоку событий и унарным методам.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi/wire"
)

// DefaultEndpoint — публичный адрес Trade API.
const DefaultEndpoint = "trade-api.finam.ru:443"

// Config — параметры подключения.
type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Token     string `mapstructure:"token"`
	Insecure  bool   `mapstructure:"insecure"`
	UserAgent string `mapstructure:"user_agent"`
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
}

// Validate проверяет обязательные поля.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("transport: token is required")
	}
	return nil
}

// Conn — открытое соединение. Безопасен для конкурентного использования.
type Conn struct {
	cc   *grpc.ClientConn
	log  *logger.Logger
	once sync.Once
	err  error
}

// Dial создаёт соединение. grpc.NewClient не ходит в сеть: ошибки
// подключения проявятся на первом вызове.
func Dial(cfg Config, log *logger.Logger, extra ...grpc.DialOption) (*Conn, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(apiKey{token: cfg.Token, secure: !cfg.Insecure}),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, grpc.WithUserAgent(cfg.UserAgent))
	}
	opts = append(opts, extra...)

	cc, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.Endpoint, err)
	}
	log.Named("transport").Info("grpc client created",
		zap.String("endpoint", cfg.Endpoint), zap.Bool("insecure", cfg.Insecure))
	return &Conn{cc: cc, log: log.Named("transport")}, nil
}

// OpenEvents открывает bidi-поток GetEvents. Поток живёт, пока жив ctx.
func (c *Conn) OpenEvents(ctx context.Context) (*EventStream, error) {
	desc := &grpc.StreamDesc{
		StreamName:    wire.EventsStreamName,
		ServerStreams: true,
		ClientStreams: true,
	}
	cs, err := c.cc.NewStream(ctx, desc, wire.MethodGetEvents, grpc.ForceCodec(wire.Codec{}))
	if err != nil {
		return nil, fmt.Errorf("transport: open events: %w", err)
	}
	c.log.Debug("events stream opened")
	return &EventStream{cs: cs}, nil
}

// Invoke вызывает унарный метод Trade API.
func (c *Conn) Invoke(ctx context.Context, method string, req wire.Marshaler, resp wire.Unmarshaler) error {
	return c.cc.Invoke(ctx, method, req, resp, grpc.ForceCodec(wire.Codec{}))
}

// Close закрывает соединение. Повторные вызовы возвращают результат первого.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.err = c.cc.Close()
		c.log.Info("grpc client closed")
	})
	return c.err
}

// EventStream — типизированная обёртка над grpc.ClientStream.
// Send и Recv можно вызывать из разных горутин, но не конкурентно
// сами с собой.
type EventStream struct {
	cs grpc.ClientStream
}

func (s *EventStream) Send(cmd tradeapi.Command) error {
	return s.cs.SendMsg(&wire.CommandFrame{Command: cmd})
}

func (s *EventStream) Recv() (tradeapi.Event, error) {
	var f wire.EventFrame
	if err := s.cs.RecvMsg(&f); err != nil {
		return tradeapi.Event{}, err
	}
	return f.Event, nil
}

func (s *EventStream) CloseSend() error { return s.cs.CloseSend() }

// apiKey передаёт токен в метаданных каждого вызова.
type apiKey struct {
	token  string
	secure bool
}

func (a apiKey) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"x-api-key": a.token}, nil
}

func (a apiKey) RequireTransportSecurity() bool { return a.secure }
