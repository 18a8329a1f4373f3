package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YaganovValera/finam-trade-client/common/configloader"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
finam:
  token: secret
subscriptions:
  client_ids: [C1]
  order_books: ["TQBR:SBER"]
kafka:
  brokers: [localhost:9092]
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeYAML(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Finam.Transport.Endpoint != "trade-api.finam.ru:443" {
		t.Errorf("endpoint = %q", cfg.Finam.Transport.Endpoint)
	}
	if !cfg.Finam.StopOnRPCError {
		t.Error("stop_on_rpc_error must default to true")
	}
	if cfg.Finam.Events.KeepAliveInterval != 120*time.Second {
		t.Errorf("keepalive interval = %v", cfg.Finam.Events.KeepAliveInterval)
	}
	if cfg.Finam.Events.KeepAliveRequestID != "keepAliveRequest" {
		t.Errorf("keepalive id = %q", cfg.Finam.Events.KeepAliveRequestID)
	}
	if cfg.Kafka.Topics.OrderBooks != "finam.orderbooks" {
		t.Errorf("orderbooks topic = %q", cfg.Kafka.Topics.OrderBooks)
	}
	if cfg.Redis.Enabled() {
		t.Error("redis must be disabled without url")
	}
	if cfg.JournalEnabled() {
		t.Error("journal must be disabled without dsn")
	}
	if cfg.Postgres.MaxConns != 4 || cfg.Postgres.ConnMaxLifetime != time.Hour {
		t.Errorf("postgres defaults = %+v", cfg.Postgres)
	}
	if !cfg.Subscriptions.IncludeOrders || !cfg.Subscriptions.IncludeTrades {
		t.Error("orders and trades must be included by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINAM_COLLECTOR_FINAM_TOKEN", "from-env")
	t.Setenv("FINAM_COLLECTOR_FINAM_EVENTS_KEEPALIVE_INTERVAL", "30s")
	t.Setenv("FINAM_COLLECTOR_SUBSCRIPTIONS_ORDER_BOOKS", "TQBR:SBER,TQBR:GAZP")
	t.Setenv("FINAM_COLLECTOR_FINAM_STOP_ON_RPC_ERROR", "false")

	cfg, err := Load(writeYAML(t, minimal))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Finam.Transport.Token != "from-env" {
		t.Errorf("token = %q", cfg.Finam.Transport.Token)
	}
	if cfg.Finam.Events.KeepAliveInterval != 30*time.Second {
		t.Errorf("keepalive interval = %v", cfg.Finam.Events.KeepAliveInterval)
	}
	if cfg.Finam.StopOnRPCError {
		t.Error("stop_on_rpc_error must be overridden")
	}
	books, err := cfg.Subscriptions.Instruments()
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 2 || books[1] != (Instrument{Board: "TQBR", Code: "GAZP"}) {
		t.Errorf("books = %v", books)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no token", "subscriptions: {client_ids: [C1]}\nkafka: {brokers: [k:9092]}\n", "finam.token"},
		{"nothing to subscribe", "finam: {token: x}\nkafka: {brokers: [k:9092]}\n", "client_ids or order_books"},
		{"bad book", "finam: {token: x}\nsubscriptions: {order_books: [SBER]}\nkafka: {brokers: [k:9092]}\n", "BOARD:CODE"},
		{"no brokers", "finam: {token: x}\nsubscriptions: {client_ids: [C1]}\n", "kafka.brokers"},
		{"negative pool", "finam: {token: x}\nsubscriptions: {client_ids: [C1]}\nkafka: {brokers: [k:9092]}\npostgres: {dsn: 'postgres://u:p@db/x', max_conns: -1}\n", "postgres.max_conns"},
		{"neither orders nor trades", "finam: {token: x}\nsubscriptions: {client_ids: [C1], include_trades: false, include_orders: false}\nkafka: {brokers: [k:9092]}\n", "include_trades"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeYAML(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestParseInstrument(t *testing.T) {
	in, err := ParseInstrument(" TQBR:SBER ")
	if err != nil || in.Board != "TQBR" || in.Code != "SBER" {
		t.Fatalf("got %v, %v", in, err)
	}
	for _, bad := range []string{"", "TQBR", ":SBER", "TQBR:"} {
		if _, err := ParseInstrument(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg, err := Load(writeYAML(t, minimal+"postgres:\n  dsn: postgres://collector:pgpass@db:5432/finam\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.JournalEnabled() {
		t.Fatal("journal must be enabled with dsn")
	}
	var buf bytes.Buffer
	configloader.PrintConfig(&buf, cfg)
	if strings.Contains(buf.String(), "secret") {
		t.Fatalf("token leaked: %s", buf.String())
	}
	if strings.Contains(buf.String(), "pgpass") {
		t.Fatalf("dsn leaked: %s", buf.String())
	}
	if cfg.Finam.Transport.Token != "secret" {
		t.Fatal("Redacted must not modify the original")
	}
}

func TestLoadFinam(t *testing.T) {
	cfg, err := LoadFinam(writeYAML(t, "finam: {token: x, insecure: true}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Transport.Insecure || cfg.Transport.Token != "x" {
		t.Errorf("cfg = %+v", cfg)
	}
	if _, err := LoadFinam(writeYAML(t, "finam: {insecure: true}\n")); err == nil {
		t.Fatal("expected missing token error")
	}
}

func TestLoadKafka(t *testing.T) {
	cfg, err := LoadKafka(writeYAML(t, "kafka: {brokers: [k1:9092, k2:9092]}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Brokers)
	}
	want := []string{"finam.orders", "finam.trades", "finam.orderbooks", "finam.portfolios"}
	for i, topic := range cfg.Topics.All() {
		if topic != want[i] {
			t.Errorf("topic[%d] = %q, want %q", i, topic, want[i])
		}
	}
	if _, err := LoadKafka(writeYAML(t, "finam: {token: x}\n")); err == nil {
		t.Fatal("expected missing brokers error")
	}
}
