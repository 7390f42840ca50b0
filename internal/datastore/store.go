// Package datastore executes generated SQL against the activity database.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/grimoire/internal/contract"
	"github.com/huangsam/grimoire/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLStore is a read-only connection to one activity database. It keeps a
// single open connection, so queries run one at a time.
type SQLStore struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	logger  *zap.Logger
}

var _ contract.Store = &SQLStore{} // Compile-time check

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithLogger sets the logger used for query timings.
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// driverFor returns the database/sql driver name and the normalized connection string.
func driverFor(backend schema.DatabaseBackend, connStr string) (string, string, error) {
	switch backend {
	case schema.SQLiteBackend:
		return "sqlite", connStr, nil
	case schema.MySQLBackend:
		dsn, err := mysqlDSN(connStr)
		if err != nil {
			return "", "", err
		}
		return "mysql", dsn, nil
	case schema.PostgreSQLBackend:
		return "pgx", connStr, nil
	default:
		return "", "", fmt.Errorf("unsupported database backend: %s. Must be sqlite, mysql, or postgresql", backend)
	}
}

// mysqlDSN makes DATETIME columns scan as UTC time.Time and lets
// migrations carry several statements per file.
func mysqlDSN(connStr string) (string, error) {
	cfg, err := mysql.ParseDSN(connStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse MySQL connection string: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	cfg.Loc = time.UTC
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["time_zone"]; !ok {
		cfg.Params["time_zone"] = "'+00:00'"
	}
	return cfg.FormatDSN(), nil
}

func openDB(ctx context.Context, backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	driverName, dsn, err := driverFor(backend, connStr)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", backend, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// Open connects to the activity database of the given backend.
func Open(ctx context.Context, backend schema.DatabaseBackend, connStr string, opts ...Option) (*SQLStore, error) {
	db, err := openDB(ctx, backend, connStr)
	if err != nil {
		return nil, err
	}
	// One connection per store: a composed query is fully consumed before the next one starts.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Backend implements contract.Store.
func (s *SQLStore) Backend() schema.DatabaseBackend { return s.backend }

// Close implements contract.Store.
func (s *SQLStore) Close() error { return s.db.Close() }

// Query implements contract.Querier.
func (s *SQLStore) Query(ctx context.Context, query string) (*schema.Rows, error) {
	start := time.Now()
	rows, err := s.query(ctx, query)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	queriesTotal.WithLabelValues(string(s.backend), status).Inc()
	queryDuration.WithLabelValues(string(s.backend)).Observe(elapsed.Seconds())

	if err != nil {
		s.logger.Debug("query failed", zap.String("sql", query), zap.Error(err))
		return nil, err
	}
	rowsReturned.WithLabelValues(string(s.backend)).Add(float64(rows.Len()))
	s.logger.Debug("query done",
		zap.String("sql", query),
		zap.Int("rows", rows.Len()),
		zap.Duration("elapsed", elapsed))
	return rows, nil
}

func (s *SQLStore) query(ctx context.Context, query string) (*schema.Rows, error) {
	rs, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer func() { _ = rs.Close() }()

	cols, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	out := &schema.Rows{Columns: cols}
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		out.Values = append(out.Values, vals)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement. It is meant for fixtures and tooling, the
// reporting paths only read.
func (s *SQLStore) Exec(ctx context.Context, stmt string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}
