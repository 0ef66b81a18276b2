package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theprismdata/llm-sql-maker/internal/graph"
)

// fakePaths serves canned shortest-path answers.
type fakePaths struct {
	paths map[graph.Pair]graph.Path
	err   error
}

func (f *fakePaths) ShortestPaths(context.Context, []string, int) (map[graph.Pair]graph.Path, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.paths, nil
}

func directPath(from, fromCol, to, toCol string) graph.Path {
	return graph.Path{
		Tables: []string{from, to},
		Edges: []graph.Edge{{
			FromTable: from, FromColumn: fromCol,
			ToTable: to, ToColumn: toCol,
			Kind: "foreign_key", Confidence: 1.0,
		}},
	}
}

func planTables(plan []JoinStep) []string {
	out := make([]string, 0, len(plan))
	for _, s := range plan {
		out = append(out, s.Table)
	}
	return out
}

func TestPlan_EmptyInput(t *testing.T) {
	p := New(&fakePaths{})

	_, err := p.Plan(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnplannable)

	_, err = p.Plan(context.Background(), []string{"", ""})
	assert.ErrorIs(t, err, ErrUnplannable)
}

func TestPlan_SingleTable(t *testing.T) {
	p := New(&fakePaths{})

	plan, err := p.Plan(context.Background(), []string{"users"})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "users", plan[0].Table)
	assert.False(t, plan[0].Connected())
}

func TestPlan_DeduplicatesInput(t *testing.T) {
	p := New(&fakePaths{})

	plan, err := p.Plan(context.Background(), []string{"users", "users", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, planTables(plan))
}

func TestPlan_TwoConnectedTables(t *testing.T) {
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("orders", "users"): directPath("orders", "user_id", "users", "user_id"),
	}}
	p := New(store)

	plan, err := p.Plan(context.Background(), []string{"users", "orders"})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	// Equal connection counts fall back to the name-ascending tie-break.
	assert.Equal(t, "orders", plan[0].Table)
	assert.False(t, plan[0].Connected())

	assert.Equal(t, "users", plan[1].Table)
	require.Len(t, plan[1].Predicates, 1)
	pred := plan[1].Predicates[0]
	assert.Equal(t, "orders", pred.FromTable)
	assert.Equal(t, "user_id", pred.FromColumn)
	assert.Equal(t, "users", pred.ToTable)
	assert.Equal(t, 1.0, pred.Confidence)
}

func TestPlan_AnchorIsMostConnected(t *testing.T) {
	// hub connects to both spokes; the spokes reach only the hub.
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("hub", "spoke_a"): directPath("spoke_a", "hub_id", "hub", "hub_id"),
		graph.PairOf("hub", "spoke_b"): directPath("spoke_b", "hub_id", "hub", "hub_id"),
	}}
	p := New(store)

	plan, err := p.Plan(context.Background(), []string{"spoke_b", "hub", "spoke_a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hub", "spoke_a", "spoke_b"}, planTables(plan))
	assert.True(t, plan[1].Connected())
	assert.True(t, plan[2].Connected())
}

func TestPlan_PathOrientedFromPlacedSide(t *testing.T) {
	// Stored path runs users -> orders; when orders is placed first the
	// planner walks it from the orders end without flipping edge orientation.
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("orders", "users"): {
			Tables: []string{"users", "orders"},
			Edges:  []graph.Edge{{FromTable: "orders", FromColumn: "user_id", ToTable: "users", ToColumn: "user_id", Kind: "foreign_key", Confidence: 1.0}},
		},
	}}
	p := New(store)

	plan, err := p.Plan(context.Background(), []string{"orders", "users"})
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "orders", plan[0].Table)
	require.Len(t, plan[1].Predicates, 1)
	assert.Equal(t, "orders", plan[1].Predicates[0].FromTable)
	assert.Equal(t, "users", plan[1].Predicates[0].ToTable)
}

func TestPlan_MultiHopPredicates(t *testing.T) {
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("users", "products"): {
			Tables: []string{"products", "order_items", "orders", "users"},
			Edges: []graph.Edge{
				{FromTable: "order_items", FromColumn: "product_id", ToTable: "products", ToColumn: "product_id", Kind: "foreign_key", Confidence: 1.0},
				{FromTable: "order_items", FromColumn: "order_id", ToTable: "orders", ToColumn: "order_id", Kind: "foreign_key", Confidence: 1.0},
				{FromTable: "orders", FromColumn: "user_id", ToTable: "users", ToColumn: "user_id", Kind: "foreign_key", Confidence: 1.0},
			},
		},
	}}
	p := New(store)

	plan, err := p.Plan(context.Background(), []string{"users", "products"})
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "products", plan[0].Table)
	require.Len(t, plan[1].Predicates, 3)
	// The path arrives oriented from the placed anchor (products).
	assert.Equal(t, "order_items", plan[1].Predicates[0].FromTable)
	assert.Equal(t, "users", plan[1].Predicates[2].ToTable)
}

func TestPlan_DisconnectedTablesAppendedBare(t *testing.T) {
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("orders", "users"): directPath("orders", "user_id", "users", "user_id"),
	}}
	p := New(store)

	plan, err := p.Plan(context.Background(), []string{"users", "orders", "zebra", "audit_log"})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users", "audit_log", "zebra"}, planTables(plan))
	assert.False(t, plan[2].Connected())
	assert.False(t, plan[3].Connected())
}

func TestPlan_NoConnectivityAtAll(t *testing.T) {
	p := New(&fakePaths{})

	plan, err := p.Plan(context.Background(), []string{"b", "a", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, planTables(plan))
	for _, step := range plan {
		assert.False(t, step.Connected())
	}
}

func TestPlan_TimeoutDegradesToBarePlan(t *testing.T) {
	p := New(&fakePaths{err: graph.ErrQueryTimeout})

	plan, err := p.Plan(context.Background(), []string{"users", "orders"})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, planTables(plan))
	assert.False(t, plan[1].Connected())
}

func TestPlan_BackendErrorPropagates(t *testing.T) {
	p := New(&fakePaths{err: graph.ErrBackendUnavailable})

	_, err := p.Plan(context.Background(), []string{"users", "orders"})
	assert.ErrorIs(t, err, graph.ErrBackendUnavailable)
}

func TestPlan_Deterministic(t *testing.T) {
	store := &fakePaths{paths: map[graph.Pair]graph.Path{
		graph.PairOf("hub", "spoke_a"): directPath("spoke_a", "hub_id", "hub", "hub_id"),
		graph.PairOf("hub", "spoke_b"): directPath("spoke_b", "hub_id", "hub", "hub_id"),
	}}
	p := New(store)

	first, err := p.Plan(context.Background(), []string{"spoke_a", "spoke_b", "hub"})
	require.NoError(t, err)
	second, err := p.Plan(context.Background(), []string{"hub", "spoke_b", "spoke_a"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
