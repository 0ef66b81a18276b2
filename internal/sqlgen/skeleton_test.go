package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theprismdata/llm-sql-maker/internal/planner"
)

func TestBuildSkeleton_SingleTable(t *testing.T) {
	skeleton, err := BuildSkeleton([]planner.JoinStep{{Table: "users"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users`", skeleton.SQL)
	assert.Empty(t, skeleton.CrossJoined)
}

func TestBuildSkeleton_SimpleJoin(t *testing.T) {
	plan := []planner.JoinStep{
		{Table: "users"},
		{Table: "orders", Predicates: []planner.Predicate{
			{FromTable: "orders", FromColumn: "user_id", ToTable: "users", ToColumn: "user_id", Confidence: 1.0},
		}},
	}

	skeleton, err := BuildSkeleton(plan)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` JOIN `orders` ON `orders`.`user_id` = `users`.`user_id`", skeleton.SQL)
	assert.Empty(t, skeleton.CrossJoined)
}

func TestBuildSkeleton_MultiHopPullsIntermediates(t *testing.T) {
	plan := []planner.JoinStep{
		{Table: "users"},
		{Table: "products", Predicates: []planner.Predicate{
			{FromTable: "orders", FromColumn: "user_id", ToTable: "users", ToColumn: "user_id", Confidence: 1.0},
			{FromTable: "order_items", FromColumn: "order_id", ToTable: "orders", ToColumn: "order_id", Confidence: 1.0},
			{FromTable: "order_items", FromColumn: "product_id", ToTable: "products", ToColumn: "product_id", Confidence: 1.0},
		}},
	}

	skeleton, err := BuildSkeleton(plan)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM `users`"+
			" JOIN `orders` ON `orders`.`user_id` = `users`.`user_id`"+
			" JOIN `order_items` ON `order_items`.`order_id` = `orders`.`order_id`"+
			" JOIN `products` ON `order_items`.`product_id` = `products`.`product_id`",
		skeleton.SQL)
	assert.Empty(t, skeleton.CrossJoined)
}

func TestBuildSkeleton_UnconnectedTableCrossJoined(t *testing.T) {
	plan := []planner.JoinStep{
		{Table: "users"},
		{Table: "audit_log"},
	}

	skeleton, err := BuildSkeleton(plan)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` CROSS JOIN `audit_log`", skeleton.SQL)
	assert.Equal(t, []string{"audit_log"}, skeleton.CrossJoined)
}

func TestBuildSkeleton_ColumnLessPredicateCrossJoined(t *testing.T) {
	// Semantic evidence names the tables but no columns, so there is no ON
	// condition to render.
	plan := []planner.JoinStep{
		{Table: "users"},
		{Table: "products", Predicates: []planner.Predicate{
			{FromTable: "users", ToTable: "products", Confidence: 0.8},
		}},
	}

	skeleton, err := BuildSkeleton(plan)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` CROSS JOIN `products`", skeleton.SQL)
	assert.Equal(t, []string{"products"}, skeleton.CrossJoined)
}

func TestBuildSkeleton_SkipsEdgeBetweenPlacedTables(t *testing.T) {
	plan := []planner.JoinStep{
		{Table: "users"},
		{Table: "orders", Predicates: []planner.Predicate{
			{FromTable: "orders", FromColumn: "user_id", ToTable: "users", ToColumn: "user_id", Confidence: 1.0},
			// Shortcut edge between two tables that are both in the query already.
			{FromTable: "users", FromColumn: "user_id", ToTable: "orders", ToColumn: "user_id", Confidence: 0.7},
		}},
	}

	skeleton, err := BuildSkeleton(plan)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `users` JOIN `orders` ON `orders`.`user_id` = `users`.`user_id`", skeleton.SQL)
}

func TestBuildSkeleton_EmptyPlan(t *testing.T) {
	_, err := BuildSkeleton(nil)
	assert.Error(t, err)
}
