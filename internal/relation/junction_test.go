package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

func junctionSchema(link schema.Table) *schema.Schema {
	return &schema.Schema{
		Tables: []schema.Table{
			{Name: "orders", PrimaryKeys: []string{"order_id"}, Columns: []schema.Column{{Name: "order_id", IsPrimaryKey: true}}},
			{Name: "products", PrimaryKeys: []string{"product_id"}, Columns: []schema.Column{{Name: "product_id", IsPrimaryKey: true}}},
			link,
		},
	}
}

func linkTable(extraColumns ...schema.Column) schema.Table {
	t := schema.Table{
		Name:        "order_items",
		PrimaryKeys: []string{"order_id", "product_id"},
		Columns: []schema.Column{
			{Name: "order_id", IsPrimaryKey: true},
			{Name: "product_id", IsPrimaryKey: true},
		},
		ForeignKeys: []schema.ForeignKey{
			{ColumnName: "order_id", ReferencedTable: "orders", ReferencedColumn: "order_id"},
			{ColumnName: "product_id", ReferencedTable: "products", ReferencedColumn: "product_id"},
		},
	}
	t.Columns = append(t.Columns, extraColumns...)
	return t
}

func TestClassifyJunctions_Pure(t *testing.T) {
	junctions := ClassifyJunctions(junctionSchema(linkTable()))

	require.Len(t, junctions, 1)
	info := junctions["order_items"]
	assert.Equal(t, PureJunction, info.Type)
	assert.Equal(t, "orders", info.LeftTable)
	assert.Equal(t, "products", info.RightTable)
	assert.Empty(t, info.AttributeColumns)
	assert.Equal(t, "order_items links orders <-> products", info.Describe())
}

func TestClassifyJunctions_Attribute(t *testing.T) {
	link := linkTable(schema.Column{Name: "quantity", DataType: "int"})
	junctions := ClassifyJunctions(junctionSchema(link))

	require.Contains(t, junctions, "order_items")
	info := junctions["order_items"]
	assert.Equal(t, AttributeJunction, info.Type)
	assert.Equal(t, []string{"quantity"}, info.AttributeColumns)
}

func TestClassifyJunctions_SidesOrderedByName(t *testing.T) {
	link := linkTable()
	link.ForeignKeys[0], link.ForeignKeys[1] = link.ForeignKeys[1], link.ForeignKeys[0]
	junctions := ClassifyJunctions(junctionSchema(link))

	require.Contains(t, junctions, "order_items")
	assert.Equal(t, "orders", junctions["order_items"].LeftTable)
	assert.Equal(t, "products", junctions["order_items"].RightTable)
}

func TestClassifyJunctions_RejectsNullableForeignKeyColumn(t *testing.T) {
	link := linkTable()
	link.Columns[0].IsNullable = true

	junctions := ClassifyJunctions(junctionSchema(link))
	assert.Empty(t, junctions)
}

func TestClassifyJunctions_RejectsWhenPrimaryKeyDoesNotCoverForeignKeys(t *testing.T) {
	link := linkTable()
	link.PrimaryKeys = []string{"order_id"}

	junctions := ClassifyJunctions(junctionSchema(link))
	assert.Empty(t, junctions)
}

func TestClassifyJunctions_RejectsSelfReferentialPair(t *testing.T) {
	link := linkTable()
	link.ForeignKeys[1].ReferencedTable = "orders"

	junctions := ClassifyJunctions(junctionSchema(link))
	assert.Empty(t, junctions)
}

func TestClassifyJunctions_RejectsMissingReferencedTable(t *testing.T) {
	link := linkTable()
	link.ForeignKeys[1].ReferencedTable = "archived_products"

	junctions := ClassifyJunctions(junctionSchema(link))
	assert.Empty(t, junctions)
}

func TestClassifyJunctions_RejectsWrongForeignKeyCount(t *testing.T) {
	link := linkTable()
	link.ForeignKeys = link.ForeignKeys[:1]

	junctions := ClassifyJunctions(junctionSchema(link))
	assert.Empty(t, junctions)
}
