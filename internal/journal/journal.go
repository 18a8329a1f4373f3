// Package journal сохраняет сделки и состояния заявок в PostgreSQL
// (TimescaleDB). Схема накатывается goose-миграциями при старте.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx для database/sql (goose)
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/YaganovValera/finam-trade-client/common/logger"
	"github.com/YaganovValera/finam-trade-client/pkg/tradeapi"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

var tracer = otel.Tracer("events-collector/journal")

// Config — подключение к БД. Пустой DSN выключает журнал.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

func (c *Config) applyDefaults() {
	if c.MaxConns <= 0 {
		c.MaxConns = 4
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c Config) validate() error {
	if c.DSN == "" {
		return fmt.Errorf("journal: dsn must be provided")
	}
	return nil
}

// pool — часть *pgxpool.Pool, которой пользуется журнал.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Journal пишет события в таблицы trades и orders.
type Journal struct {
	pool pool
	log  *logger.Logger
}

func newJournal(p pool, log *logger.Logger) *Journal {
	return &Journal{pool: p, log: log}
}

// New применяет миграции и открывает пул соединений.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Journal, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log = log.Named("journal")

	pgxCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("journal: parse dsn: %w", err)
	}
	pgxCfg.MaxConns = cfg.MaxConns
	pgxCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := migrate(ctx, cfg.DSN); err != nil {
		return nil, err
	}
	log.Info("journal: migrations applied")

	pg, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("journal: connect: %w", err)
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	log.Info("journal: connected", zap.String("host", pgxCfg.ConnConfig.Host))
	return newJournal(pg, log), nil
}

func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("journal migrate: open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("journal migrate: dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("journal migrate: up: %w", err)
	}
	return nil
}

const insertTrade = `
INSERT INTO trades
  (trade_no, order_no, client_id, security_board, security_code, created_at,
   buy_sell, quantity, price, value, commission, currency, accrued_interest)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (trade_no) DO NOTHING`

// SaveTrade сохраняет сделку; повтор того же trade_no игнорируется.
func (j *Journal) SaveTrade(ctx context.Context, t *tradeapi.TradeEvent) error {
	ctx, span := tracer.Start(ctx, "Journal.SaveTrade", trace.WithAttributes(
		attribute.Int64("trade_no", t.TradeNo),
		attribute.String("client_id", t.ClientID),
	))
	defer span.End()

	tag, err := j.pool.Exec(ctx, insertTrade,
		t.TradeNo, t.OrderNo, t.ClientID, t.SecurityBoard, t.SecurityCode, nullTime(t.CreatedAt),
		int16(t.BuySell), t.Quantity, t.Price, t.Value, t.Commission, t.Currency, t.AccruedInterest,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("journal: insert trade %d: %w", t.TradeNo, err)
	}
	if tag.RowsAffected() == 0 {
		j.log.WithContext(ctx).Debug("trade already journaled", zap.Int64("trade_no", t.TradeNo))
	}
	return nil
}

const upsertOrder = `
INSERT INTO orders
  (client_id, transaction_id, order_no, security_board, security_code, status,
   buy_sell, price, quantity, balance, message, currency, created_at, accepted_at, updated_at)
VALUES
  ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
ON CONFLICT (client_id, transaction_id) DO UPDATE SET
  order_no    = EXCLUDED.order_no,
  status      = EXCLUDED.status,
  price       = EXCLUDED.price,
  balance     = EXCLUDED.balance,
  message     = EXCLUDED.message,
  accepted_at = COALESCE(EXCLUDED.accepted_at, orders.accepted_at),
  updated_at  = now()`

// SaveOrder сохраняет последнее состояние заявки по (client_id, transaction_id).
func (j *Journal) SaveOrder(ctx context.Context, o *tradeapi.OrderEvent) error {
	ctx, span := tracer.Start(ctx, "Journal.SaveOrder", trace.WithAttributes(
		attribute.Int("transaction_id", int(o.TransactionID)),
		attribute.String("client_id", o.ClientID),
	))
	defer span.End()

	_, err := j.pool.Exec(ctx, upsertOrder,
		o.ClientID, o.TransactionID, o.OrderNo, o.SecurityBoard, o.SecurityCode, int16(o.Status),
		int16(o.BuySell), o.Price, o.Quantity, o.Balance, o.Message, o.Currency,
		nullTime(o.CreatedAt), nullTime(o.AcceptedAt),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("journal: upsert order %s/%d: %w", o.ClientID, o.TransactionID, err)
	}
	return nil
}

// Ping проверяет доступность БД.
func (j *Journal) Ping(ctx context.Context) error { return j.pool.Ping(ctx) }

// Close закрывает пул.
func (j *Journal) Close() { j.pool.Close() }

// nullTime превращает нулевое время в NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
