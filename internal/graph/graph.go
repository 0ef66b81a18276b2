// Package graph maintains the schema relationship graph: Table and Column
// nodes connected by HAS_COLUMN edges plus relationship edges (REFERENCES for
// column-level facts, SEMANTIC_RELATION for table-level facts). The graph is
// rebuilt wholesale per analysis cycle and queried for bounded shortest paths
// and neighborhoods during planning.
package graph

import (
	"errors"
	"fmt"
)

// Node labels and edge types, shared by all backends.
const (
	LabelTable           = "Table"
	LabelColumn          = "Column"
	EdgeHasColumn        = "HAS_COLUMN"
	EdgeReferences       = "REFERENCES"
	EdgeSemanticRelation = "SEMANTIC_RELATION"
)

// DefaultMaxHops bounds path queries so dense graphs stay cheap to search.
const DefaultMaxHops = 3

// ErrBackendUnavailable wraps failures of the underlying graph engine. It is
// distinct from "no path exists": callers may retry backend errors but not a
// genuinely disconnected schema.
var ErrBackendUnavailable = errors.New("graph backend unavailable")

// ErrQueryTimeout marks a path query that exceeded its deadline. The planner
// treats it like missing connectivity rather than a hard failure.
var ErrQueryTimeout = errors.New("graph query timed out")

// Pair is an unordered table pair; A sorts before B.
type Pair struct {
	A string
	B string
}

// PairOf normalizes two table names into a Pair.
func PairOf(t1, t2 string) Pair {
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	return Pair{A: t1, B: t2}
}

// Edge is one relationship edge traversed by a path query. Column names are
// empty for semantic edges.
type Edge struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
	Kind       string
	Confidence float64
}

// Path is a concrete minimum-hop route between two tables: the ordered table
// sequence and the edge actually taken at each hop.
type Path struct {
	Tables []string
	Edges  []Edge
}

// Distance is the hop count of the path.
func (p Path) Distance() int {
	return len(p.Edges)
}

// Reversed returns the path walked from the other end. Edges keep their
// stored orientation; only the traversal order flips.
func (p Path) Reversed() Path {
	tables := make([]string, len(p.Tables))
	for i, t := range p.Tables {
		tables[len(p.Tables)-1-i] = t
	}
	edges := make([]Edge, len(p.Edges))
	for i, e := range p.Edges {
		edges[len(p.Edges)-1-i] = e
	}
	return Path{Tables: tables, Edges: edges}
}

// NeighborOptions controls neighborhood expansion. Structural expansion
// (foreign_key/naming_pattern edges) and semantic expansion are capped
// independently since semantic evidence is weaker.
type NeighborOptions struct {
	MaxHops         int
	StructuralLimit int
	SemanticLimit   int
}

func (o NeighborOptions) withDefaults() NeighborOptions {
	if o.MaxHops <= 0 {
		o.MaxHops = DefaultMaxHops
	}
	return o
}

func backendError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}
