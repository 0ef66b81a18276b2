// Package planner derives an ordered join sequence for a set of tables from
// the relationship graph. The join order is a greedy nearest-unplaced-table
// expansion — a Prim-style spanning construction over pairwise shortest-path
// distances. It is not a globally optimal join order (that problem is
// NP-hard) but is a good fit for the single-digit table counts this tool
// plans for.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/theprismdata/llm-sql-maker/internal/graph"
)

// ErrUnplannable is returned when the required table set is empty. It is the
// only input the planner refuses; disconnected schemas yield degraded plans
// instead.
var ErrUnplannable = errors.New("unplannable: no tables to join")

// Predicate is one column-equality condition joining a new table to a table
// already in the plan. Column names are empty when the connecting evidence is
// a table-level semantic relationship.
type Predicate struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
	Confidence float64
}

// JoinStep adds one table to the plan. The first step is the anchor and
// carries no predicates. A later step with an empty predicate list marks a
// table that could not be connected — callers must treat it as a manual-join
// (cross join) risk, not silently assume joinability.
type JoinStep struct {
	Table      string
	Predicates []Predicate
}

// Connected reports whether the step carries at least one predicate.
func (s JoinStep) Connected() bool {
	return len(s.Predicates) > 0
}

// PathQuerier is the graph store surface the planner needs.
type PathQuerier interface {
	ShortestPaths(ctx context.Context, tables []string, maxHops int) (map[graph.Pair]graph.Path, error)
}

// Planner computes join plans against a graph store.
type Planner struct {
	store   PathQuerier
	maxHops int
	logger  *slog.Logger
}

// Option customizes a Planner.
type Option func(*Planner)

// WithMaxHops overrides the shortest-path hop bound.
func WithMaxHops(hops int) Option {
	return func(p *Planner) { p.maxHops = hops }
}

// WithLogger sets the planner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// New creates a Planner over a graph store.
func New(store PathQuerier, opts ...Option) *Planner {
	p := &Planner{
		store:   store,
		maxHops: graph.DefaultMaxHops,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan returns the ordered join sequence covering every required table.
//
// The anchor is the required table with the most known pairwise connections
// (ties broken by name); each following step adds the remaining table closest
// to any already placed table. Tables with no finite-distance connection are
// appended with empty predicates rather than failing the plan.
func (p *Planner) Plan(ctx context.Context, required []string) ([]JoinStep, error) {
	tables := uniqueSorted(required)
	if len(tables) == 0 {
		return nil, ErrUnplannable
	}
	if len(tables) == 1 {
		return []JoinStep{{Table: tables[0]}}, nil
	}

	paths, err := p.store.ShortestPaths(ctx, tables, p.maxHops)
	if err != nil {
		if errors.Is(err, graph.ErrQueryTimeout) {
			// A timed-out query degrades to "no connections found" so the
			// caller still receives a (degenerate) join order.
			p.logger.Warn("path query timed out, planning without connectivity")
			paths = nil
		} else {
			return nil, err
		}
	}

	anchor := chooseAnchor(tables, paths)
	placed := map[string]struct{}{anchor: {}}
	plan := []JoinStep{{Table: anchor}}

	remaining := make([]string, 0, len(tables)-1)
	for _, t := range tables {
		if t != anchor {
			remaining = append(remaining, t)
		}
	}

	for len(remaining) > 0 {
		next, path, ok := nearestToPlaced(remaining, placed, paths)
		if !ok {
			// Disconnected remainder: emit bare steps in name order so the
			// plan still covers every required table.
			for _, t := range remaining {
				plan = append(plan, JoinStep{Table: t})
			}
			p.logger.Warn("tables unreachable within hop bound, appended without join predicates",
				slog.Any("tables", remaining))
			break
		}

		plan = append(plan, JoinStep{Table: next, Predicates: pathPredicates(path)})
		placed[next] = struct{}{}
		remaining = removeString(remaining, next)
	}

	return plan, nil
}

// chooseAnchor picks the table participating in the most finite-distance
// pairs, name-ascending on ties. The input is already sorted, so the first
// maximum wins deterministically.
func chooseAnchor(tables []string, paths map[graph.Pair]graph.Path) string {
	counts := make(map[string]int, len(tables))
	for pair := range paths {
		counts[pair.A]++
		counts[pair.B]++
	}

	anchor := tables[0]
	best := counts[anchor]
	for _, t := range tables[1:] {
		if counts[t] > best {
			anchor = t
			best = counts[t]
		}
	}
	return anchor
}

// nearestToPlaced finds the remaining table with the smallest shortest-path
// distance to any placed table. The returned path is oriented from the placed
// side towards the new table. Remaining tables are scanned in name order, so
// distance ties resolve to the smallest name.
func nearestToPlaced(remaining []string, placed map[string]struct{}, paths map[graph.Pair]graph.Path) (string, graph.Path, bool) {
	bestDist := -1
	var bestTable string
	var bestPath graph.Path

	anchors := make([]string, 0, len(placed))
	for anchor := range placed {
		anchors = append(anchors, anchor)
	}
	sort.Strings(anchors)

	for _, candidate := range remaining {
		for _, anchor := range anchors {
			path, ok := paths[graph.PairOf(candidate, anchor)]
			if !ok {
				continue
			}
			dist := path.Distance()
			if bestDist != -1 && dist >= bestDist {
				continue
			}
			if len(path.Tables) > 0 && path.Tables[0] != anchor {
				path = path.Reversed()
			}
			bestDist = dist
			bestTable = candidate
			bestPath = path
		}
	}

	if bestDist == -1 {
		return "", graph.Path{}, false
	}
	return bestTable, bestPath, true
}

// pathPredicates converts the traversed edge sequence into join predicates.
func pathPredicates(path graph.Path) []Predicate {
	predicates := make([]Predicate, 0, len(path.Edges))
	for _, edge := range path.Edges {
		predicates = append(predicates, Predicate{
			FromTable:  edge.FromTable,
			FromColumn: edge.FromColumn,
			ToTable:    edge.ToTable,
			ToColumn:   edge.ToColumn,
			Confidence: edge.Confidence,
		})
	}
	return predicates
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func removeString(values []string, target string) []string {
	out := values[:0]
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
