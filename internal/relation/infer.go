package relation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// Inferrer derives relationships from a schema snapshot. The oracle is
// optional; when nil the semantic pass is skipped entirely.
type Inferrer struct {
	oracle SemanticOracle
	logger *slog.Logger
}

// NewInferrer creates an Inferrer. Either argument may be nil.
func NewInferrer(oracle SemanticOracle, logger *slog.Logger) *Inferrer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inferrer{oracle: oracle, logger: logger}
}

// Infer runs all three evidence passes in precedence order and returns the
// accumulated relationship list. Running it twice on an unchanged schema with
// a deterministic oracle yields an identical result. An empty list is a valid
// outcome, not an error.
func (in *Inferrer) Infer(ctx context.Context, s *schema.Schema) []Relationship {
	acc := newAccumulator()
	in.inferForeignKeys(s, acc)
	in.inferNamingPatterns(s, acc)
	in.inferSemantic(ctx, s, acc)
	return acc.list
}

// inferForeignKeys emits one directed child->parent relationship per declared
// FK column pair, at full confidence.
func (in *Inferrer) inferForeignKeys(s *schema.Schema, acc *accumulator) {
	for _, table := range s.Tables {
		for _, fk := range table.ForeignKeys {
			acc.add(Relationship{
				FromTable:  table.Name,
				FromColumn: fk.ColumnName,
				ToTable:    fk.ReferencedTable,
				ToColumn:   fk.ReferencedColumn,
				Kind:       KindForeignKey,
				Confidence: ForeignKeyConfidence,
			})
		}
	}
}

// inferNamingPatterns matches "<name>_id" columns against tables called
// "<name>" or "<name>s" whose primary key equals the column name. FK evidence
// for the same column pair takes precedence, so covered pairs are skipped.
//
// The plural guess is deliberately the naive English "+s" the convention
// promises; irregular plurals are out of scope.
func (in *Inferrer) inferNamingPatterns(s *schema.Schema, acc *accumulator) {
	for _, table := range s.Tables {
		for _, col := range table.Columns {
			if !strings.HasSuffix(col.Name, "_id") {
				continue
			}
			if col.Name == table.PrimaryKey() {
				continue
			}

			base := strings.TrimSuffix(col.Name, "_id")
			for _, candidate := range []string{base, base + "s"} {
				target := s.Table(candidate)
				if target == nil || target.Name == table.Name {
					continue
				}
				if target.PrimaryKey() != col.Name {
					continue
				}
				rel := Relationship{
					FromTable:  table.Name,
					FromColumn: col.Name,
					ToTable:    target.Name,
					ToColumn:   target.PrimaryKey(),
					Kind:       KindNamingPattern,
					Confidence: NamingPatternConfidence,
				}
				if acc.coveredByForeignKey(rel) {
					continue
				}
				acc.add(rel)
			}
		}
	}
}

// inferSemantic asks the oracle for table-pair judgments and materializes each
// accepted pair as two directed edges so traversal is direction-agnostic.
// Every field of every judgment is validated; bad judgments are dropped with a
// warning and never abort the batch.
func (in *Inferrer) inferSemantic(ctx context.Context, s *schema.Schema, acc *accumulator) {
	if in.oracle == nil {
		return
	}

	descriptions := make([]TableDescription, 0, len(s.Tables))
	for _, table := range s.Tables {
		descriptions = append(descriptions, TableDescription{
			Name:        table.Name,
			Description: table.Comment,
		})
	}

	judgments, err := in.oracle.JudgeRelationships(ctx, descriptions)
	if err != nil {
		in.logger.Warn("semantic oracle unavailable, skipping semantic pass",
			slog.String("error", err.Error()))
		return
	}

	for _, j := range judgments {
		if reason, ok := in.rejectJudgment(s, acc, j); !ok {
			in.logger.Warn("dropping semantic judgment",
				slog.String("table1", j.Table1),
				slog.String("table2", j.Table2),
				slog.String("reason", reason),
			)
			continue
		}

		confidence := j.Confidence
		if confidence > SemanticConfidenceCeiling {
			confidence = SemanticConfidenceCeiling
		}
		acc.add(Relationship{
			FromTable:  j.Table1,
			ToTable:    j.Table2,
			Kind:       KindSemantic,
			Confidence: confidence,
		})
		acc.add(Relationship{
			FromTable:  j.Table2,
			ToTable:    j.Table1,
			Kind:       KindSemantic,
			Confidence: confidence,
		})
	}
}

// rejectJudgment validates an oracle judgment against the schema and the
// relationships accepted so far. Returns a rejection reason when invalid.
func (in *Inferrer) rejectJudgment(s *schema.Schema, acc *accumulator, j Judgment) (string, bool) {
	switch {
	case j.Table1 == "" || j.Table2 == "":
		return "missing table name", false
	case j.Table1 == j.Table2:
		return "self pair", false
	case !s.HasTable(j.Table1):
		return "unknown table: " + j.Table1, false
	case !s.HasTable(j.Table2):
		return "unknown table: " + j.Table2, false
	case j.Confidence <= 0:
		return "non-positive confidence", false
	case acc.tablesRelated(j.Table1, j.Table2):
		return "pair already related", false
	}
	return "", true
}

// accumulator collects relationships, dropping duplicate directed keys.
type accumulator struct {
	list []Relationship
	seen map[string]struct{}
	// pairs indexes unordered table pairs across all kinds for the semantic
	// "already related" check.
	pairs map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		seen:  make(map[string]struct{}),
		pairs: make(map[string]struct{}),
	}
}

func (a *accumulator) add(r Relationship) {
	key := r.Key()
	if _, dup := a.seen[key]; dup {
		return
	}
	a.seen[key] = struct{}{}
	a.pairs[pairKey(r.FromTable, r.ToTable)] = struct{}{}
	a.list = append(a.list, r)
}

func (a *accumulator) coveredByForeignKey(r Relationship) bool {
	fk := r
	fk.Kind = KindForeignKey
	_, ok := a.seen[fk.Key()]
	return ok
}

func (a *accumulator) tablesRelated(t1, t2 string) bool {
	_, ok := a.pairs[pairKey(t1, t2)]
	return ok
}

func pairKey(t1, t2 string) string {
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return t1 + "|" + t2
}
