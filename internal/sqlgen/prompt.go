// Package sqlgen turns a join plan and a natural-language question into SQL.
// The model does the actual text-to-SQL work; this package renders the prompt
// that constrains it, extracts the statement from the response, and can build
// a deterministic join skeleton directly from the plan without any model.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/theprismdata/llm-sql-maker/internal/planner"
	"github.com/theprismdata/llm-sql-maker/internal/relation"
	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// RenderQueryPrompt builds the SQL-generation prompt: the selected tables'
// definitions, the planned join route, and the question. Constraining the
// model to the planned joins is what keeps multi-table answers on known
// relationship paths instead of invented ones. Junction tables are flagged so
// the model treats them as links rather than entities.
func RenderQueryPrompt(sc *schema.Schema, junctions relation.JunctionMap, plan []planner.JoinStep, question string) string {
	var b strings.Builder
	b.WriteString("You are an expert SQL writer for MySQL. Use only the tables and\n")
	b.WriteString("columns below.\n\n")

	for _, step := range plan {
		table := sc.Table(step.Table)
		if table == nil {
			continue
		}
		writeTableContext(&b, table, junctions)
	}

	if route := describeJoins(plan); route != "" {
		b.WriteString("Join the tables along this route:\n")
		b.WriteString(route)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Rules:\n")
	b.WriteString("- Write exactly one SELECT statement.\n")
	b.WriteString("- Do not modify data (no INSERT, UPDATE, DELETE, DDL).\n")
	b.WriteString("- Respond with the SQL only, no explanation.\n")
	return b.String()
}

func writeTableContext(b *strings.Builder, table *schema.Table, junctions relation.JunctionMap) {
	fmt.Fprintf(b, "Table %s", table.Name)
	if table.Comment != "" {
		fmt.Fprintf(b, " -- %s", table.Comment)
	}
	if j, ok := junctions[table.Name]; ok {
		fmt.Fprintf(b, " -- link table between %s and %s", j.LeftTable, j.RightTable)
	}
	b.WriteString("\n")
	for _, col := range table.Columns {
		fmt.Fprintf(b, "  %s %s", col.Name, col.DataType)
		if col.IsPrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if len(col.EnumValues) > 0 {
			fmt.Fprintf(b, " (one of: %s)", strings.Join(col.EnumValues, ", "))
		}
		if col.Comment != "" {
			fmt.Fprintf(b, " -- %s", col.Comment)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// describeJoins renders the plan as join conditions the model must follow.
// Steps without predicates are flagged so the model knows the table is not
// connected by any known relationship.
func describeJoins(plan []planner.JoinStep) string {
	if len(plan) < 2 {
		return ""
	}

	var b strings.Builder
	for i, step := range plan {
		if i == 0 {
			fmt.Fprintf(&b, "- start from %s\n", step.Table)
			continue
		}
		if !step.Connected() {
			fmt.Fprintf(&b, "- %s has no known join to the other tables; join it explicitly only if the question requires it\n", step.Table)
			continue
		}
		for _, p := range step.Predicates {
			if p.FromColumn == "" || p.ToColumn == "" {
				fmt.Fprintf(&b, "- %s relates to %s (no join columns known, confidence %.2f)\n",
					p.FromTable, p.ToTable, p.Confidence)
				continue
			}
			fmt.Fprintf(&b, "- join %s.%s = %s.%s (confidence %.2f)\n",
				p.FromTable, p.FromColumn, p.ToTable, p.ToColumn, p.Confidence)
		}
	}
	return b.String()
}
