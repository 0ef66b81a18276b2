package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/theprismdata/llm-sql-maker/internal/relation"
	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// BoltBackend persists the relationship graph in Neo4j over the Bolt
// protocol. The engine is used as a passive index: all graph semantics are
// expressed in the Cypher issued here, mirroring the memory backend.
type BoltBackend struct {
	driver   neo4j.DriverWithContext
	database string
}

// BoltConfig holds Neo4j connection parameters.
type BoltConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewBoltBackend connects to Neo4j and verifies reachability.
func NewBoltBackend(ctx context.Context, cfg BoltConfig) (*BoltBackend, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", cfg.URI, err)
	}
	return &BoltBackend{driver: driver, database: cfg.Database}, nil
}

func (b *BoltBackend) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return b.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: b.database,
	})
}

// Rebuild wipes all schema nodes and recreates them from the snapshot in a
// single write transaction, so readers never see a half-built graph.
func (b *BoltBackend) Rebuild(ctx context.Context, s *schema.Schema, rels []relation.Relationship) error {
	session := b.session(ctx, neo4j.AccessModeWrite)
	defer func() {
		_ = session.Close(ctx)
	}()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (n) WHERE n:Table OR n:Column DETACH DELETE n", nil); err != nil {
			return nil, err
		}

		for _, table := range s.Tables {
			_, err := tx.Run(ctx,
				"CREATE (t:Table {name: $name, comment: $comment, primary_keys: $primary_keys})",
				map[string]any{
					"name":         table.Name,
					"comment":      table.Comment,
					"primary_keys": table.PrimaryKeys,
				})
			if err != nil {
				return nil, err
			}

			for _, col := range table.Columns {
				_, err := tx.Run(ctx, `
					MATCH (t:Table {name: $table})
					CREATE (c:Column {
						name: $name,
						data_type: $data_type,
						nullable: $nullable,
						primary_key: $primary_key,
						comment: $comment
					})
					CREATE (t)-[:HAS_COLUMN]->(c)
				`, map[string]any{
					"table":       table.Name,
					"name":        col.Name,
					"data_type":   col.DataType,
					"nullable":    col.IsNullable,
					"primary_key": col.IsPrimaryKey,
					"comment":     col.Comment,
				})
				if err != nil {
					return nil, err
				}
			}
		}

		for _, rel := range rels {
			edgeType := EdgeReferences
			if rel.Kind == relation.KindSemantic {
				edgeType = EdgeSemanticRelation
			}
			query := fmt.Sprintf(`
				MATCH (a:Table {name: $from_table})
				MATCH (b:Table {name: $to_table})
				CREATE (a)-[:%s {
					from_table: $from_table,
					from_column: $from_column,
					to_table: $to_table,
					to_column: $to_column,
					kind: $kind,
					confidence: $confidence
				}]->(b)
			`, edgeType)
			_, err := tx.Run(ctx, query, map[string]any{
				"from_table":  rel.FromTable,
				"from_column": rel.FromColumn,
				"to_table":    rel.ToTable,
				"to_column":   rel.ToColumn,
				"kind":        string(rel.Kind),
				"confidence":  rel.Confidence,
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// ShortestPaths issues one allShortestPaths query per unordered pair and
// picks the lexicographically smallest candidate, matching the memory
// backend's deterministic tie-break.
func (b *BoltBackend) ShortestPaths(ctx context.Context, tables []string, maxHops int) (map[Pair]Path, error) {
	unique := uniqueSorted(tables)
	session := b.session(ctx, neo4j.AccessModeRead)
	defer func() {
		_ = session.Close(ctx)
	}()

	// Variable-length bounds cannot be parameterized in Cypher.
	query := fmt.Sprintf(`
		MATCH (a:Table {name: $a}), (b:Table {name: $b})
		MATCH p = allShortestPaths((a)-[:%s|%s*..%d]-(b))
		RETURN [n IN nodes(p) | n.name] AS tables,
		       [r IN relationships(p) | properties(r)] AS edges
	`, EdgeReferences, EdgeSemanticRelation, maxHops)

	result := make(map[Pair]Path)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			pair := PairOf(unique[i], unique[j])
			path, ok, err := b.queryPairPath(ctx, session, query, pair)
			if err != nil {
				return nil, err
			}
			if ok {
				result[pair] = path
			}
		}
	}
	return result, nil
}

func (b *BoltBackend) queryPairPath(ctx context.Context, session neo4j.SessionWithContext, query string, pair Pair) (Path, bool, error) {
	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"a": pair.A, "b": pair.B})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return Path{}, false, err
	}

	var best Path
	found := false
	for _, record := range records.([]*neo4j.Record) {
		candidate, err := recordToPath(record)
		if err != nil {
			return Path{}, false, err
		}
		if !found || lessTableSequence(candidate.Tables, best.Tables) {
			best = candidate
			found = true
		}
	}
	return best, found, nil
}

// NeighborsWithin expands the seeds with two read queries: one over
// structural edges only, one over all relationship edges. Category caps are
// applied client-side the same way the memory backend does.
func (b *BoltBackend) NeighborsWithin(ctx context.Context, tables []string, opts NeighborOptions) ([]string, error) {
	session := b.session(ctx, neo4j.AccessModeRead)
	defer func() {
		_ = session.Close(ctx)
	}()

	structuralQuery := fmt.Sprintf(`
		MATCH (s:Table) WHERE s.name IN $seeds
		MATCH p = (s)-[:%s*..%d]-(t:Table)
		WHERE NOT t.name IN $seeds
		RETURN t.name AS name, min(length(p)) AS dist
		ORDER BY dist, name
	`, EdgeReferences, opts.MaxHops)
	allQuery := fmt.Sprintf(`
		MATCH (s:Table) WHERE s.name IN $seeds
		MATCH p = (s)-[:%s|%s*..%d]-(t:Table)
		WHERE NOT t.name IN $seeds
		RETURN t.name AS name, min(length(p)) AS dist
		ORDER BY dist, name
	`, EdgeReferences, EdgeSemanticRelation, opts.MaxHops)

	structural, err := b.queryNeighborNames(ctx, session, structuralQuery, tables)
	if err != nil {
		return nil, err
	}
	all, err := b.queryNeighborNames(ctx, session, allQuery, tables)
	if err != nil {
		return nil, err
	}

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
	structuralSet := make(map[string]struct{}, len(structural))
	for _, name := range structural {
		structuralSet[name] = struct{}{}
	}
	var semantic []string
	for _, name := range all {
		if _, ok := structuralSet[name]; !ok {
			semantic = append(semantic, name)
		}
	}
	take(semantic, opts.SemanticLimit)

	sort.Strings(out)
	return out, nil
}

func (b *BoltBackend) queryNeighborNames(ctx context.Context, session neo4j.SessionWithContext, query string, seeds []string) ([]string, error) {
	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"seeds": seeds})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}

	var names []string
	for _, record := range records.([]*neo4j.Record) {
		value, ok := record.Get("name")
		if !ok {
			continue
		}
		if name, ok := value.(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// Close shuts down the driver.
func (b *BoltBackend) Close(ctx context.Context) error {
	return b.driver.Close(ctx)
}

func recordToPath(record *neo4j.Record) (Path, error) {
	tablesValue, ok := record.Get("tables")
	if !ok {
		return Path{}, fmt.Errorf("path record missing tables")
	}
	edgesValue, ok := record.Get("edges")
	if !ok {
		return Path{}, fmt.Errorf("path record missing edges")
	}

	rawTables, ok := tablesValue.([]any)
	if !ok {
		return Path{}, fmt.Errorf("unexpected tables value %T", tablesValue)
	}
	var path Path
	for _, raw := range rawTables {
		name, ok := raw.(string)
		if !ok {
			return Path{}, fmt.Errorf("unexpected table name value %T", raw)
		}
		path.Tables = append(path.Tables, name)
	}

	rawEdges, ok := edgesValue.([]any)
	if !ok {
		return Path{}, fmt.Errorf("unexpected edges value %T", edgesValue)
	}
	for _, raw := range rawEdges {
		props, ok := raw.(map[string]any)
		if !ok {
			return Path{}, fmt.Errorf("unexpected edge value %T", raw)
		}
		edge := Edge{
			FromTable:  stringProp(props, "from_table"),
			FromColumn: stringProp(props, "from_column"),
			ToTable:    stringProp(props, "to_table"),
			ToColumn:   stringProp(props, "to_column"),
			Kind:       stringProp(props, "kind"),
		}
		if conf, ok := props["confidence"].(float64); ok {
			edge.Confidence = conf
		}
		path.Edges = append(path.Edges, edge)
	}
	return path, nil
}

func stringProp(props map[string]any, key string) string {
	if value, ok := props[key].(string); ok {
		return value
	}
	return ""
}

func lessTableSequence(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
