package dbexec

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/theprismdata/llm-sql-maker/internal/sqlutil"
)

// ReadOnlyExecutor runs each query on a dedicated connection whose session is
// switched to read-only first, so the database itself rejects writes even if a
// statement slips past client-side checks.
type ReadOnlyExecutor struct {
	db           *sql.DB
	databaseName string
}

// NewReadOnlyExecutor creates an executor that applies
// SET SESSION TRANSACTION READ ONLY before each query.
func NewReadOnlyExecutor(db *sql.DB, databaseName string) *ReadOnlyExecutor {
	return &ReadOnlyExecutor{db: db, databaseName: databaseName}
}

func (e *ReadOnlyExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	cleanup := func() {
		_, _ = conn.ExecContext(context.Background(), "SET SESSION TRANSACTION READ WRITE")
		_ = conn.Close()
	}

	if err := e.prepareSession(ctx, conn); err != nil {
		cleanup()
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &connScopedRows{
		Rows:    rows,
		cleanup: cleanup,
	}, nil
}

// ExecContext is intentionally refused; this executor exists to guarantee
// nothing it runs can mutate the database.
func (e *ReadOnlyExecutor) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, fmt.Errorf("read-only executor does not support exec statements")
}

func (e *ReadOnlyExecutor) prepareSession(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY"); err != nil {
		return fmt.Errorf("failed to set read-only session: %w", err)
	}
	if e.databaseName != "" {
		// MySQL doesn't support a parameterized USE statement.
		useSQL := fmt.Sprintf("USE %s", sqlutil.QuoteIdentifier(e.databaseName))
		if _, err := conn.ExecContext(ctx, useSQL); err != nil {
			return fmt.Errorf("failed to select database %s: %w", e.databaseName, err)
		}
	}
	return nil
}

type connScopedRows struct {
	*sql.Rows
	cleanup func()
}

func (r *connScopedRows) Close() error {
	defer r.cleanup()
	return r.Rows.Close()
}
