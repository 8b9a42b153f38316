package sqlstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/bft-labs/inboxship/internal/domain"
)

func newSQLiteSource(t *testing.T, cfg Config) *Source {
	t.Helper()
	cfg.Driver = DriverSQLite
	cfg.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	src, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	src.db.SetMaxOpenConns(1)

	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE sms (_id INTEGER PRIMARY KEY, date INTEGER, address TEXT, body TEXT, type INTEGER, thread_id INTEGER)`,
		`INSERT INTO sms (date, address, body, type, thread_id) VALUES (1700000000002, '+15550000002', 'second', 1, 9)`,
		`INSERT INTO sms (date, address, body, type, thread_id) VALUES (1700000000001, '+15550000001', 'first', 1, 9)`,
		`INSERT INTO sms (date, address, body, type, thread_id) VALUES (1700000000003, '+15550000003', 'sent', 2, 9)`,
	}
	for _, stmt := range stmts {
		if _, err := src.db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return src
}

func TestListMessagesOrdersAndPassesColumnsThrough(t *testing.T) {
	src := newSQLiteSource(t, Config{})

	msgs, err := src.ListMessages(context.Background())
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	wantBodies := []string{"first", "second", "sent"}
	for i, m := range msgs {
		if m.Position != i {
			t.Fatalf("message %d position %d", i, m.Position)
		}
		body, err := m.Body()
		if err != nil {
			t.Fatalf("Body: %v", err)
		}
		if body != wantBodies[i] {
			t.Fatalf("message %d body %q, want %q", i, body, wantBodies[i])
		}
		if _, ok := m.Fields["thread_id"]; !ok {
			t.Fatalf("extra column thread_id missing from %v", m.Fields)
		}
	}

	ts, err := msgs[0].Timestamp()
	if err != nil || ts != 1700000000001 {
		t.Fatalf("Timestamp = %d, %v", ts, err)
	}
	if _, ok := msgs[0].Fields["address"].(string); !ok {
		t.Fatalf("text columns should be strings, got %T", msgs[0].Fields["address"])
	}

	hasher := domain.NewHasher(domain.SchemeDelimited)
	fp, err := hasher.MessageFingerprint(msgs[0])
	if err != nil {
		t.Fatalf("MessageFingerprint: %v", err)
	}
	if fp != hasher.Fingerprint(1700000000001, "+15550000001", "first") {
		t.Fatal("fingerprint of a SQL row differs from the direct computation")
	}
}

func TestListMessagesTypeFilterAndDescending(t *testing.T) {
	src := newSQLiteSource(t, Config{MessageType: 1, OrderBy: "date DESC"})

	msgs, err := src.ListMessages(context.Background())
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 inbox messages, got %d", len(msgs))
	}
	if body, _ := msgs[0].Body(); body != "second" {
		t.Fatalf("expected newest first, got %q", body)
	}
}

func TestListMessagesMissingTable(t *testing.T) {
	src := newSQLiteSource(t, Config{Table: "nope"})
	_, err := src.ListMessages(context.Background())
	if !domain.HasCode(err, domain.CodeSourceUnavailable) {
		t.Fatalf("expected SOURCE_UNAVAILABLE, got %v", err)
	}
}

func TestOpenValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "bad driver", cfg: Config{Driver: "mysql", DSN: "x"}},
		{name: "empty dsn", cfg: Config{Driver: DriverSQLite}},
		{name: "bad table", cfg: Config{Driver: DriverSQLite, DSN: "x.db", Table: "sms; DROP TABLE sms"}},
		{name: "bad order", cfg: Config{Driver: DriverSQLite, DSN: "x.db", OrderBy: "date sideways"}},
		{name: "bad order column", cfg: Config{Driver: DriverSQLite, DSN: "x.db", OrderBy: "1=1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.cfg)
			if !domain.HasCode(err, domain.CodeConfiguration) {
				t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		driver string
		dsn    string
		want   string
	}{
		{DriverSQLite, "/data/mmssms.db", "/data/mmssms.db"},
		{DriverSQLite, "file:/data/mmssms.db?mode=ro", "/data/mmssms.db"},
		{DriverSQLite, "file:x?mode=memory&cache=shared", ""},
		{DriverSQLite, ":memory:", ""},
		{DriverPostgres, "postgres://u@localhost/sms?sslmode=disable", ""},
	}
	for _, tt := range tests {
		src, err := Open(Config{Driver: tt.driver, DSN: tt.dsn})
		if err != nil {
			t.Fatalf("Open(%s): %v", tt.dsn, err)
		}
		if got := src.Path(); got != tt.want {
			t.Errorf("Path(%s) = %q, want %q", tt.dsn, got, tt.want)
		}
		_ = src.Close()
	}
}
