package dbexec

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultMaxRows bounds how many rows FetchAll materializes.
const DefaultMaxRows = 200

// ResultSet holds a fully materialized query result, rendered as strings for
// display. Truncated is true when the row cap cut the result short.
type ResultSet struct {
	Columns   []string
	Rows      [][]string
	Truncated bool
}

// FetchAll runs a query and materializes up to maxRows rows (DefaultMaxRows
// when maxRows <= 0). Values scan through sql.NullString so NULLs render as
// "NULL" instead of failing the scan.
func FetchAll(ctx context.Context, exec QueryExecutor, query string, maxRows int) (*ResultSet, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &ResultSet{Columns: columns}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return result, nil
}
