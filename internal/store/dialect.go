package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

// DatabaseFile is the SQLite database file name inside the data directory.
const DatabaseFile = "linkgraph.db"

// PostgreSQL error codes classified as conflicts.
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// dialect captures what differs between the SQLite and PostgreSQL stores.
type dialect struct {
	name   string
	driver string
	goose  goose.Dialect
	// migrations is the directory under the embedded migrations FS.
	migrations string
	// dollar selects $n placeholders instead of ?.
	dollar bool
	// rowLocks enables SELECT ... FOR UPDATE on the capacity source row.
	rowLocks bool
	writeTx    *sql.TxOptions
	readTx     *sql.TxOptions
}

var (
	sqliteDialect = dialect{
		name:       types.BackendSQLite,
		driver:     "sqlite",
		goose:      goose.DialectSQLite3,
		migrations: "migrations/sqlite",
		// The writer handle begins IMMEDIATE transactions and the reader
		// handle is query_only, so both use driver defaults.
	}

	postgresDialect = dialect{
		name:       types.BackendPostgres,
		driver:     "pgx",
		goose:      goose.DialectPostgres,
		migrations: "migrations/postgres",
		dollar:     true,
		rowLocks:   true,
		writeTx:    &sql.TxOptions{Isolation: sql.LevelSerializable},
		readTx:     &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}
)

func dialectFor(backend string) (dialect, error) {
	switch backend {
	case types.BackendSQLite:
		return sqliteDialect, nil
	case types.BackendPostgres:
		return postgresDialect, nil
	}
	return dialect{}, fmt.Errorf("%w: %s", types.ErrBackendUnknown, backend)
}

// rebind rewrites ? placeholders into the dialect's form. Queries in this
// package never contain literal question marks.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// forUpdate returns the clause that locks rows of the given table alias for
// the rest of the transaction.
func (d dialect) forUpdate(alias string) string {
	if !d.rowLocks {
		return ""
	}
	return " FOR UPDATE OF " + alias
}

// classify maps driver errors onto engine sentinels. Uniqueness violations
// and lost serialization races become ErrConflict; everything else is
// returned unchanged.
func (d dialect) classify(err error) error {
	if err == nil || errors.Is(err, types.ErrConflict) {
		return err
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", types.ErrConflict, err)
		case sqlite3.SQLITE_BUSY:
			return fmt.Errorf("%w: database busy: %v", types.ErrConflict, err)
		}
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", types.ErrConflict, pgErr.Message)
		}
	}
	return err
}

// writerDSN returns the DSN for the read-write handle.
func (d dialect) writerDSN(cfg types.Config) string {
	if d.name == types.BackendPostgres {
		return cfg.DSN
	}
	return sqliteDSN(cfg, url.Values{
		"_txlock": {"immediate"},
	})
}

// readerDSN returns the DSN for the read-only handle used by traversals.
func (d dialect) readerDSN(cfg types.Config) string {
	if d.name == types.BackendPostgres {
		return cfg.DSN
	}
	return sqliteDSN(cfg, url.Values{
		"_pragma": {"query_only(1)"},
	})
}

func sqliteDSN(cfg types.Config, extra url.Values) string {
	path := cfg.DSN
	if path == "" {
		dir := cfg.DataDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, DatabaseFile)
	}
	q := url.Values{
		"_pragma": {"foreign_keys(1)", "journal_mode(WAL)", "busy_timeout(5000)"},
	}
	for k, vs := range extra {
		q[k] = append(q[k], vs...)
	}
	return path + "?" + q.Encode()
}
