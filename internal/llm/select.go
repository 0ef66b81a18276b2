package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// Selection is the set of tables the model considers relevant to a question.
type Selection struct {
	Tables []string `json:"tables"`
	Reason string   `json:"reason"`
	// Fallback is true when the tables came from keyword matching instead of
	// the model.
	Fallback bool `json:"-"`
}

// Selector picks the tables a natural-language question is about.
type Selector struct {
	client *Client
	logger *slog.Logger
}

// NewSelector creates a table selector.
func NewSelector(client *Client, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{client: client, logger: logger}
}

// SelectTables asks the model which tables the question needs. Table names
// the schema does not contain are dropped from the answer. When the model
// call fails or returns nothing usable, keyword matching against table names,
// comments and column names takes over.
func (s *Selector) SelectTables(ctx context.Context, sc *schema.Schema, question string) (Selection, error) {
	ctx, span := otel.Tracer("llm-sql-maker/llm").Start(ctx, "llm.select_tables")
	defer span.End()

	raw, err := s.client.Complete(ctx, selectPrompt(sc, question))
	if err != nil {
		s.logger.Warn("table selection request failed, falling back to keyword matching",
			slog.String("error", err.Error()))
		return keywordFallback(sc, question), nil
	}

	selection, err := parseSelection(raw)
	if err != nil {
		s.logger.Warn("discarding malformed table selection response",
			slog.String("error", err.Error()))
		return keywordFallback(sc, question), nil
	}

	valid := make([]string, 0, len(selection.Tables))
	for _, name := range selection.Tables {
		if sc.HasTable(name) {
			valid = append(valid, name)
		} else {
			s.logger.Warn("model selected unknown table", slog.String("table", name))
		}
	}
	if len(valid) == 0 {
		return keywordFallback(sc, question), nil
	}

	selection.Tables = valid
	span.SetAttributes(attribute.Int("llm.select.table_count", len(valid)))
	return selection, nil
}

func selectPrompt(sc *schema.Schema, question string) string {
	var b strings.Builder
	b.WriteString("You are a database analyst. These are the tables of the database:\n\n")
	for _, t := range sc.Tables {
		fmt.Fprintf(&b, "- %s", t.Name)
		if t.Comment != "" {
			fmt.Fprintf(&b, " (%s)", t.Comment)
		}
		cols := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
		fmt.Fprintf(&b, ": %s\n", strings.Join(cols, ", "))
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n\n", question)
	b.WriteString("Which tables are needed to answer the question? Respond with JSON only:\n")
	b.WriteString(`{"tables": ["..."], "reason": "..."}` + "\n")
	return b.String()
}

func parseSelection(raw string) (Selection, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return Selection{}, fmt.Errorf("no JSON object in response")
	}

	var selection Selection
	if err := json.Unmarshal([]byte(raw[start:end+1]), &selection); err != nil {
		return Selection{}, fmt.Errorf("failed to decode selection: %w", err)
	}
	return selection, nil
}

// keywordFallback matches question words against table names, table comments
// and column names. Words are singularized so "orders" in the question still
// hits an "order_items" column and vice versa.
func keywordFallback(sc *schema.Schema, question string) Selection {
	words := questionWords(question)

	matched := make(map[string]struct{})
	for _, t := range sc.Tables {
		haystack := strings.ToLower(t.Name + " " + t.Comment)
		for _, c := range t.Columns {
			haystack += " " + strings.ToLower(c.Name)
		}
		for _, w := range words {
			if strings.Contains(haystack, w) {
				matched[t.Name] = struct{}{}
				break
			}
		}
	}

	tables := make([]string, 0, len(matched))
	for name := range matched {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return Selection{
		Tables:   tables,
		Reason:   "keyword match against table and column names",
		Fallback: true,
	}
}

func questionWords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '_'
	})

	seen := make(map[string]struct{}, len(fields))
	var words []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		singular := inflection.Singular(f)
		if _, dup := seen[singular]; dup {
			continue
		}
		seen[singular] = struct{}{}
		words = append(words, singular)
	}
	return words
}
