package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// GenerateSQL sends a fully rendered SQL-generation prompt and returns the
// raw model output. Prompt rendering and SQL extraction live in the sqlgen
// package; this call only adds tracing around the completion.
func (c *Client) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("llm-sql-maker/llm").Start(ctx, "llm.generate_sql")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.cfg.Model),
		attribute.Int("llm.prompt_bytes", len(prompt)),
	)

	raw, err := c.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("sql generation request failed: %w", err)
	}
	return raw, nil
}
