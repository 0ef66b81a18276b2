package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

func selectorSchema() *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{
				Name:    "users",
				Comment: "customer accounts",
				Columns: []schema.Column{{Name: "user_id"}, {Name: "name"}},
			},
			{
				Name:    "orders",
				Columns: []schema.Column{{Name: "order_id"}, {Name: "user_id"}},
			},
			{
				Name:    "products",
				Comment: "items for sale",
				Columns: []schema.Column{{Name: "product_id"}, {Name: "title"}},
			},
		},
	}
}

func TestSelectTables(t *testing.T) {
	srv := ollamaTextServer(t, `{"tables": ["users", "orders"], "reason": "question asks about customer orders"}`)
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "how many orders per user?")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, selection.Tables)
	assert.False(t, selection.Fallback)
	assert.NotEmpty(t, selection.Reason)
}

func TestSelectTables_DropsUnknownTables(t *testing.T) {
	srv := ollamaTextServer(t, `{"tables": ["users", "ghosts"], "reason": "guessing"}`)
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, selection.Tables)
	assert.False(t, selection.Fallback)
}

func TestSelectTables_AllUnknownFallsBack(t *testing.T) {
	srv := ollamaTextServer(t, `{"tables": ["ghosts"], "reason": "hallucinated"}`)
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "list the products")
	require.NoError(t, err)
	assert.True(t, selection.Fallback)
	assert.Equal(t, []string{"products"}, selection.Tables)
}

func TestSelectTables_MalformedResponseFallsBack(t *testing.T) {
	srv := ollamaTextServer(t, "the users table, probably")
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "show users")
	require.NoError(t, err)
	assert.True(t, selection.Fallback)
	assert.Equal(t, []string{"orders", "users"}, selection.Tables)
}

func TestSelectTables_RequestFailureFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "show users")
	require.NoError(t, err)
	assert.True(t, selection.Fallback)
	assert.Contains(t, selection.Tables, "users")
}

func TestSelectTables_ProseWrappedJSON(t *testing.T) {
	srv := ollamaTextServer(t, "Sure!\n```json\n{\"tables\": [\"products\"], \"reason\": \"catalog question\"}\n```")
	defer srv.Close()

	selector := NewSelector(ollamaClient(srv.URL), nil)

	selection, err := selector.SelectTables(context.Background(), selectorSchema(), "what do we sell?")
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, selection.Tables)
	assert.False(t, selection.Fallback)
}

func TestKeywordFallback(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			// "users" singularizes to "user" and matches users plus the
			// user_id column on orders.
			name:     "plural table name",
			question: "count all users",
			want:     []string{"orders", "users"},
		},
		{
			name:     "column name match",
			question: "which product_id appears most?",
			want:     []string{"products"},
		},
		{
			name:     "comment match",
			question: "what is for sale right now",
			want:     []string{"products"},
		},
		{
			name:     "no match",
			question: "what is the meaning of life?",
			want:     []string{},
		},
		{
			name:     "short words ignored",
			question: "id of it",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selection := keywordFallback(selectorSchema(), tt.question)
			assert.True(t, selection.Fallback)
			assert.Equal(t, tt.want, selection.Tables)
		})
	}
}

func TestQuestionWords(t *testing.T) {
	words := questionWords("Which Orders did the users place?")
	assert.Equal(t, []string{"which", "order", "did", "the", "user", "place"}, words)
}
