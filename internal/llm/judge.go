package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/theprismdata/llm-sql-maker/internal/relation"
)

// Judge asks the model to spot table relationships that neither foreign keys
// nor naming conventions reveal. It implements relation.SemanticOracle.
type Judge struct {
	client *Client
	logger *slog.Logger
}

// NewJudge wraps a client as a semantic oracle.
func NewJudge(client *Client, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{client: client, logger: logger}
}

var _ relation.SemanticOracle = (*Judge)(nil)

// JudgeRelationships returns the model's relationship judgments for the given
// tables. A malformed response is logged and treated as "no judgments", never
// as a hard failure; the structural passes already cover the schema.
func (j *Judge) JudgeRelationships(ctx context.Context, tables []relation.TableDescription) ([]relation.Judgment, error) {
	ctx, span := otel.Tracer("llm-sql-maker/llm").Start(ctx, "llm.judge_relationships")
	defer span.End()
	span.SetAttributes(attribute.Int("llm.judge.table_count", len(tables)))

	if len(tables) < 2 {
		return nil, nil
	}

	raw, err := j.client.Complete(ctx, judgePrompt(tables))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("semantic judgment request failed: %w", err)
	}

	judgments, err := parseJudgments(raw)
	if err != nil {
		j.logger.Warn("discarding malformed semantic judgment response",
			slog.String("error", err.Error()))
		return nil, nil
	}
	span.SetAttributes(attribute.Int("llm.judge.judgment_count", len(judgments)))
	return judgments, nil
}

func judgePrompt(tables []relation.TableDescription) string {
	var b strings.Builder
	b.WriteString("You are a database schema analyst. Below are tables from one database,\n")
	b.WriteString("with their comments and column summaries.\n\n")
	for _, t := range tables {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nIdentify pairs of tables that are semantically related even though no\n")
	b.WriteString("foreign key or column naming convention links them. Only report pairs you\n")
	b.WriteString("are reasonably confident about.\n\n")
	b.WriteString("Respond with a JSON array only, no prose:\n")
	b.WriteString(`[{"table1": "...", "table2": "...", "reason": "...", "confidence": 0.0}]` + "\n")
	b.WriteString("Use confidence between 0.0 and 1.0. Respond with [] if there are none.\n")
	return b.String()
}

// parseJudgments extracts the JSON array from the response text. Models often
// wrap JSON in markdown fences or surrounding prose, so it slices from the
// first '[' to the last ']' before decoding.
func parseJudgments(raw string) ([]relation.Judgment, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var judgments []relation.Judgment
	if err := json.Unmarshal([]byte(raw[start:end+1]), &judgments); err != nil {
		return nil, fmt.Errorf("failed to decode judgments: %w", err)
	}
	return judgments, nil
}
