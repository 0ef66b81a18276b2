package graph

import (
	"context"
	"sort"

	"github.com/theprismdata/llm-sql-maker/internal/relation"
	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// MemoryBackend is an in-process graph engine. It keeps the undirected view
// of all relationship edges as sorted adjacency lists so breadth-first
// searches are deterministic: visiting neighbors in lexicographic order makes
// the first shortest path found the lexicographically smallest one.
type MemoryBackend struct {
	// columns mirrors the Table-HAS_COLUMN-Column part of the graph.
	columns map[string][]string
	adj     map[string][]halfEdge
}

type halfEdge struct {
	neighbor string
	edge     Edge
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		columns: make(map[string][]string),
		adj:     make(map[string][]halfEdge),
	}
}

// Rebuild replaces the whole graph with fresh node and edge sets.
func (m *MemoryBackend) Rebuild(_ context.Context, s *schema.Schema, rels []relation.Relationship) error {
	columns := make(map[string][]string, len(s.Tables))
	adj := make(map[string][]halfEdge)

	for _, table := range s.Tables {
		names := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			names = append(names, col.Name)
		}
		columns[table.Name] = names
		adj[table.Name] = nil
	}

	for _, rel := range rels {
		edge := Edge{
			FromTable:  rel.FromTable,
			FromColumn: rel.FromColumn,
			ToTable:    rel.ToTable,
			ToColumn:   rel.ToColumn,
			Kind:       string(rel.Kind),
			Confidence: rel.Confidence,
		}
		adj[rel.FromTable] = append(adj[rel.FromTable], halfEdge{neighbor: rel.ToTable, edge: edge})
		if rel.Kind != relation.KindSemantic {
			// Directional edges get a reverse half so pathfinding treats them
			// as undirected. Semantic relationships already arrive as a pair
			// of directed edges.
			adj[rel.ToTable] = append(adj[rel.ToTable], halfEdge{neighbor: rel.FromTable, edge: edge})
		}
	}

	for table := range adj {
		sortHalfEdges(adj[table])
	}

	m.columns = columns
	m.adj = adj
	return nil
}

// ShortestPaths runs a bounded BFS per unordered pair of the input tables.
func (m *MemoryBackend) ShortestPaths(ctx context.Context, tables []string, maxHops int) (map[Pair]Path, error) {
	unique := uniqueSorted(tables)
	result := make(map[Pair]Path)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if path, ok := m.bfsPath(unique[i], unique[j], maxHops); ok {
				result[PairOf(unique[i], unique[j])] = path
			}
		}
	}
	return result, nil
}

// NeighborsWithin expands the seed set. Structural expansion walks only
// foreign_key/naming_pattern edges; semantic expansion covers tables whose
// route needs at least one semantic edge. Each category honors its own cap
// (zero means uncapped).
func (m *MemoryBackend) NeighborsWithin(ctx context.Context, tables []string, opts NeighborOptions) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seeds := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		seeds[t] = struct{}{}
	}

	structural := m.reachable(seeds, opts.MaxHops, false)
	all := m.reachable(seeds, opts.MaxHops, true)

	picked := make(map[string]struct{})
	var out []string
	take := func(candidates []string, limit int) {
		count := 0
		for _, name := range candidates {
			if limit > 0 && count >= limit {
				break
			}
			if _, dup := picked[name]; dup {
				continue
			}
			picked[name] = struct{}{}
			out = append(out, name)
			count++
		}
	}

	take(structural, opts.StructuralLimit)

	var semantic []string
	structuralSet := make(map[string]struct{}, len(structural))
	for _, name := range structural {
		structuralSet[name] = struct{}{}
	}
	for _, name := range all {
		if _, ok := structuralSet[name]; !ok {
			semantic = append(semantic, name)
		}
	}
	take(semantic, opts.SemanticLimit)

	sort.Strings(out)
	return out, nil
}

// Close is a no-op for the in-process backend.
func (m *MemoryBackend) Close(context.Context) error {
	return nil
}

// bfsPath finds the minimum-hop path between two tables within the hop bound.
// Neighbors are expanded in sorted order, so the first discovery of the target
// follows the lexicographically smallest table-name sequence.
func (m *MemoryBackend) bfsPath(from, to string, maxHops int) (Path, bool) {
	if _, ok := m.adj[from]; !ok {
		return Path{}, false
	}
	if _, ok := m.adj[to]; !ok {
		return Path{}, false
	}

	parents := map[string]visit{from: {}}
	frontier := []string{from}

	for hops := 1; hops <= maxHops && len(frontier) > 0; hops++ {
		var next []string
		for _, current := range frontier {
			for _, he := range m.adj[current] {
				if _, seen := parents[he.neighbor]; seen {
					continue
				}
				parents[he.neighbor] = visit{prev: current, edge: he.edge}
				if he.neighbor == to {
					return m.assemblePath(from, to, parents), true
				}
				next = append(next, he.neighbor)
			}
		}
		frontier = next
	}
	return Path{}, false
}

func (m *MemoryBackend) assemblePath(from, to string, parents map[string]visit) Path {
	var tables []string
	var edges []Edge
	for current := to; current != from; current = parents[current].prev {
		tables = append(tables, current)
		edges = append(edges, parents[current].edge)
	}
	tables = append(tables, from)

	// Reverse into from -> to order.
	for i, j := 0, len(tables)-1; i < j; i, j = i+1, j-1 {
		tables[i], tables[j] = tables[j], tables[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return Path{Tables: tables, Edges: edges}
}

type visit struct {
	prev string
	edge Edge
}

// reachable returns tables reachable from the seed set within maxHops,
// excluding the seeds, ordered by (distance, name).
func (m *MemoryBackend) reachable(seeds map[string]struct{}, maxHops int, includeSemantic bool) []string {
	type found struct {
		name string
		dist int
	}
	seen := make(map[string]struct{}, len(seeds))
	var frontier []string
	for name := range seeds {
		seen[name] = struct{}{}
		frontier = append(frontier, name)
	}
	sort.Strings(frontier)

	var results []found
	for hops := 1; hops <= maxHops && len(frontier) > 0; hops++ {
		var next []string
		for _, current := range frontier {
			for _, he := range m.adj[current] {
				if !includeSemantic && he.edge.Kind == string(relation.KindSemantic) {
					continue
				}
				if _, dup := seen[he.neighbor]; dup {
					continue
				}
				seen[he.neighbor] = struct{}{}
				results = append(results, found{name: he.neighbor, dist: hops})
				next = append(next, he.neighbor)
			}
		}
		sort.Strings(next)
		frontier = next
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		return results[i].name < results[j].name
	})
	out := make([]string, 0, len(results))
	for _, f := range results {
		out = append(out, f.name)
	}
	return out
}

func sortHalfEdges(edges []halfEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].neighbor != edges[j].neighbor {
			return edges[i].neighbor < edges[j].neighbor
		}
		if ri, rj := kindRank(edges[i].edge.Kind), kindRank(edges[j].edge.Kind); ri != rj {
			return ri < rj
		}
		if edges[i].edge.FromColumn != edges[j].edge.FromColumn {
			return edges[i].edge.FromColumn < edges[j].edge.FromColumn
		}
		return edges[i].edge.ToColumn < edges[j].edge.ToColumn
	})
}

// kindRank orders parallel edges by evidence strength so pathfinding prefers
// the most trustworthy edge between the same pair of tables.
func kindRank(kind string) int {
	switch kind {
	case string(relation.KindForeignKey):
		return 0
	case string(relation.KindNamingPattern):
		return 1
	default:
		return 2
	}
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
