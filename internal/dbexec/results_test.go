package dbexec

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectQuery("SELECT name, email FROM users").WillReturnRows(
		sqlmock.NewRows([]string{"name", "email"}).
			AddRow("alice", "alice@example.com").
			AddRow("bob", nil),
	)

	result, err := FetchAll(context.Background(), NewStandardExecutor(db), "SELECT name, email FROM users", 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "email"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []string{"alice", "alice@example.com"}, result.Rows[0])
	assert.Equal(t, []string{"bob", "NULL"}, result.Rows[1])
	assert.False(t, result.Truncated)
}

func TestFetchAll_Truncates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	rows := sqlmock.NewRows([]string{"n"})
	for i := 0; i < 5; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery("SELECT n FROM numbers").WillReturnRows(rows)

	result, err := FetchAll(context.Background(), NewStandardExecutor(db), "SELECT n FROM numbers", 3)
	require.NoError(t, err)

	assert.Len(t, result.Rows, 3)
	assert.True(t, result.Truncated)
}

func TestFetchAll_DefaultRowCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	rows := sqlmock.NewRows([]string{"n"})
	for i := 0; i < DefaultMaxRows+10; i++ {
		rows.AddRow(i)
	}
	mock.ExpectQuery("SELECT n FROM numbers").WillReturnRows(rows)

	result, err := FetchAll(context.Background(), NewStandardExecutor(db), "SELECT n FROM numbers", 0)
	require.NoError(t, err)

	assert.Len(t, result.Rows, DefaultMaxRows)
	assert.True(t, result.Truncated)
}

func TestFetchAll_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("table gone"))

	_, err = FetchAll(context.Background(), NewStandardExecutor(db), "SELECT * FROM gone", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestStandardExecutor_NilDB(t *testing.T) {
	exec := NewStandardExecutor(nil)

	_, err := exec.QueryContext(context.Background(), "SELECT 1")
	assert.Error(t, err)

	_, err = exec.ExecContext(context.Background(), "SELECT 1")
	assert.Error(t, err)
}
