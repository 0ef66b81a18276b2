package sqlgen

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/theprismdata/llm-sql-maker/internal/planner"
	"github.com/theprismdata/llm-sql-maker/internal/sqlutil"
)

// Skeleton is a deterministic join query built straight from the plan, with
// no model involved. It selects everything; the caller narrows columns or
// adds filters. CrossJoined lists tables that had to be joined without a
// usable predicate and is the caller's cue to warn before executing.
type Skeleton struct {
	SQL         string
	CrossJoined []string
}

// BuildSkeleton renders the plan as a SELECT over the joined tables. A step
// reached over a multi-hop path pulls its intermediate tables into the query
// too, one JOIN per traversed edge. Predicates arrive oriented from the
// placed side, so each edge joins exactly one new table.
func BuildSkeleton(plan []planner.JoinStep) (Skeleton, error) {
	if len(plan) == 0 {
		return Skeleton{}, fmt.Errorf("empty join plan")
	}

	builder := sq.Select("*").From(sqlutil.QuoteIdentifier(plan[0].Table))
	joined := map[string]struct{}{plan[0].Table: {}}
	var crossJoined []string

	for _, step := range plan[1:] {
		if !step.Connected() {
			builder = builder.CrossJoin(sqlutil.QuoteIdentifier(step.Table))
			joined[step.Table] = struct{}{}
			crossJoined = append(crossJoined, step.Table)
			continue
		}

		for _, p := range step.Predicates {
			newTable, condition, ok := joinFor(p, joined)
			if newTable == "" {
				// Both sides already joined (a shortcut edge); nothing to add.
				continue
			}
			joined[newTable] = struct{}{}
			if !ok {
				builder = builder.CrossJoin(sqlutil.QuoteIdentifier(newTable))
				crossJoined = append(crossJoined, newTable)
				continue
			}
			builder = builder.Join(fmt.Sprintf("%s ON %s", sqlutil.QuoteIdentifier(newTable), condition))
		}

		if _, ok := joined[step.Table]; !ok {
			// Every predicate was an unusable column-less edge.
			builder = builder.CrossJoin(sqlutil.QuoteIdentifier(step.Table))
			joined[step.Table] = struct{}{}
			crossJoined = append(crossJoined, step.Table)
		}
	}

	sql, _, err := builder.ToSql()
	if err != nil {
		return Skeleton{}, fmt.Errorf("failed to build join skeleton: %w", err)
	}
	return Skeleton{SQL: sql, CrossJoined: crossJoined}, nil
}

// joinFor identifies which side of the predicate is new and renders its ON
// condition. ok is false when the edge carries no join columns, which means
// the new table can only be cross-joined.
func joinFor(p planner.Predicate, joined map[string]struct{}) (newTable, condition string, ok bool) {
	_, fromPlaced := joined[p.FromTable]
	_, toPlaced := joined[p.ToTable]

	switch {
	case fromPlaced && toPlaced:
		return "", "", false
	case fromPlaced:
		newTable = p.ToTable
	case toPlaced:
		newTable = p.FromTable
	default:
		// Neither side placed yet means the chain is broken; the ON clause
		// would reference an absent table, so fall back to a cross join.
		return p.ToTable, "", false
	}

	if p.FromColumn == "" || p.ToColumn == "" {
		return newTable, "", false
	}
	condition = fmt.Sprintf("%s.%s = %s.%s",
		sqlutil.QuoteIdentifier(p.FromTable), sqlutil.QuoteIdentifier(p.FromColumn),
		sqlutil.QuoteIdentifier(p.ToTable), sqlutil.QuoteIdentifier(p.ToColumn))
	return newTable, condition, true
}

