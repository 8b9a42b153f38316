// Package sqlstore reads messages from a SQL message table (an Android
// mmssms.db copy or a Postgres mirror of it) through bun.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/bft-labs/inboxship/internal/domain"
	"github.com/bft-labs/inboxship/internal/ports"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Defaults matching the Android SMS provider schema.
const (
	DefaultTable   = "sms"
	DefaultOrderBy = "date"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the database and the message table.
type Config struct {
	Driver string
	DSN    string
	Table  string
	// OrderBy is a column name, optionally followed by ASC or DESC.
	OrderBy string
	// MessageType filters on the "type" column when non-zero (1 is the Android inbox).
	MessageType int
}

// Source implements ports.MessageSource over a SQL table.
type Source struct {
	cfg     Config
	db      *bun.DB
	column  string
	desc    bool
	sqlPath string
}

var (
	_ ports.MessageSource = (*Source)(nil)
	_ ports.LocalPath     = (*Source)(nil)
)

// Open validates cfg and prepares a bun DB handle. No connection is made
// until the first query.
func Open(cfg Config) (*Source, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = DefaultOrderBy
	}
	if !identPattern.MatchString(cfg.Table) {
		return nil, domain.ConfigurationError(fmt.Sprintf("invalid table name %q", cfg.Table), nil)
	}
	column, desc, err := parseOrder(cfg.OrderBy)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, domain.ConfigurationError("message store DSN is empty", nil)
	}

	var dialect schema.Dialect
	switch cfg.Driver {
	case DriverSQLite:
		dialect = sqlitedialect.New()
	case DriverPostgres:
		dialect = pgdialect.New()
	default:
		return nil, domain.ConfigurationError(fmt.Sprintf("unsupported message store driver %q", cfg.Driver), nil)
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, domain.SourceUnavailable(err, fmt.Sprintf("open message store: %v", err))
	}

	s := &Source{
		cfg:    cfg,
		db:     bun.NewDB(sqldb, dialect),
		column: column,
		desc:   desc,
	}
	if cfg.Driver == DriverSQLite {
		s.sqlPath = sqliteFilePath(cfg.DSN)
	}
	return s, nil
}

// Describe implements ports.MessageSource.
func (s *Source) Describe() string {
	return fmt.Sprintf("%s:%s", s.cfg.Driver, s.cfg.Table)
}

// Path returns the database file for SQLite sources, or "" when the store is
// not a local file.
func (s *Source) Path() string { return s.sqlPath }

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// ListMessages returns every row of the table in the configured order. Each
// row's columns become the message fields.
func (s *Source) ListMessages(ctx context.Context) ([]domain.Message, error) {
	query := "SELECT * FROM ?"
	args := []any{bun.Ident(s.cfg.Table)}
	if s.cfg.MessageType != 0 {
		query += " WHERE type = ?"
		args = append(args, s.cfg.MessageType)
	}
	query += " ORDER BY ?"
	args = append(args, bun.Ident(s.column))
	if s.desc {
		query += " DESC"
	}

	var rows []map[string]interface{}
	if err := s.db.NewRaw(query, args...).Scan(ctx, &rows); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.SourceUnavailable(err, fmt.Sprintf("query messages from %s: %v", s.Describe(), err))
	}

	msgs := make([]domain.Message, 0, len(rows))
	for i, row := range rows {
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		msgs = append(msgs, domain.Message{Position: i, Fields: row})
	}
	return msgs, nil
}

func parseOrder(order string) (column string, desc bool, err error) {
	parts := strings.Fields(order)
	if len(parts) == 0 || len(parts) > 2 || !identPattern.MatchString(parts[0]) {
		return "", false, domain.ConfigurationError(fmt.Sprintf("invalid order clause %q", order), nil)
	}
	if len(parts) == 2 {
		switch strings.ToUpper(parts[1]) {
		case "ASC":
		case "DESC":
			desc = true
		default:
			return "", false, domain.ConfigurationError(fmt.Sprintf("invalid order direction %q", parts[1]), nil)
		}
	}
	return parts[0], desc, nil
}

// sqliteFilePath extracts the file name from a go-sqlite3 DSN. In-memory
// databases have no path.
func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return ""
		}
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}
