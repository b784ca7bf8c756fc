package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

var (
	//go:embed schema_sqlite.sql
	sqliteSchema string
	//go:embed schema_postgres.sql
	postgresSchema string
)

type DB struct {
	*sql.DB
	Dialect Dialect
}

func NewDB(driver, dsn string) (*DB, error) {
	var (
		d      Dialect
		name   string
		source = dsn
	)
	switch driver {
	case "sqlite", "sqlite3":
		d, name = SQLite, "sqlite3"
		if source == "" {
			source = "./grammarbot.db"
		}
		source += sep(source) + "_busy_timeout=5000&_foreign_keys=on"
	case "postgres":
		d, name = Postgres, "postgres"
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(name, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if d == SQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return &DB{DB: db, Dialect: d}, nil
}

func (d *DB) InitSchema() error {
	schema := sqliteSchema
	if d.Dialect == Postgres {
		schema = postgresSchema
	}
	if _, err := d.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) rebind(q string) string {
	if d.Dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sep(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}
