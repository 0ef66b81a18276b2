// Package relation discovers relationships between tables from three evidence
// sources: declared foreign keys, column naming conventions, and semantic
// judgments supplied by an external oracle. Each source carries its own
// confidence level so downstream graph and planning code can stay
// source-agnostic.
package relation

import "fmt"

// Kind identifies the evidence source of a relationship.
type Kind string

const (
	// KindForeignKey marks a relationship derived from a declared FK constraint.
	KindForeignKey Kind = "foreign_key"
	// KindNamingPattern marks a relationship inferred from column/table naming.
	KindNamingPattern Kind = "naming_pattern"
	// KindSemantic marks a relationship inferred from table descriptions by an
	// external oracle. Semantic relationships are symmetric and column-agnostic.
	KindSemantic Kind = "semantic"
)

// Confidence levels per evidence source. The semantic ceiling stays below the
// FK level so certain evidence always outranks oracle guesses.
const (
	ForeignKeyConfidence      = 1.0
	NamingPatternConfidence   = 0.7
	SemanticConfidenceCeiling = 0.9
)

// Relationship is a directed table/column relationship fact.
// FromColumn/ToColumn are empty for table-level (semantic) evidence.
type Relationship struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
	Kind       Kind
	Confidence float64
}

// ColumnLevel reports whether the relationship names a concrete column pair.
func (r Relationship) ColumnLevel() bool {
	return r.FromColumn != "" && r.ToColumn != ""
}

// Key returns the dedup identity: the column tuple plus kind. No two
// relationships with the same key may coexist in an inference result.
func (r Relationship) Key() string {
	return fmt.Sprintf("%s.%s>%s.%s|%s", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn, r.Kind)
}

// String renders the relationship for logs and prompts.
func (r Relationship) String() string {
	if r.ColumnLevel() {
		return fmt.Sprintf("%s.%s -> %s.%s (%s, %.2f)", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn, r.Kind, r.Confidence)
	}
	return fmt.Sprintf("%s -> %s (%s, %.2f)", r.FromTable, r.ToTable, r.Kind, r.Confidence)
}
