package relation

import (
	"fmt"

	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// JunctionType classifies a many-to-many link table.
type JunctionType int

const (
	// NotJunction indicates the table is not a junction table.
	NotJunction JunctionType = iota
	// PureJunction indicates a junction with only FK columns.
	PureJunction
	// AttributeJunction indicates a junction carrying additional non-FK
	// columns (for example a quantity or a timestamp on the link).
	AttributeJunction
)

func (t JunctionType) String() string {
	switch t {
	case NotJunction:
		return "NotJunction"
	case PureJunction:
		return "PureJunction"
	case AttributeJunction:
		return "AttributeJunction"
	default:
		return "Unknown"
	}
}

// JunctionInfo describes a classified junction table.
type JunctionInfo struct {
	Table string
	Type  JunctionType
	// LeftTable and RightTable are the linked tables, ordered by name.
	LeftTable  string
	RightTable string
	// AttributeColumns lists non-FK column names (for attribute junctions).
	AttributeColumns []string
}

// Describe renders the link for display, e.g. "order_items links orders <-> products".
func (j JunctionInfo) Describe() string {
	return fmt.Sprintf("%s links %s <-> %s", j.Table, j.LeftTable, j.RightTable)
}

// JunctionMap maps junction table names to their classification.
type JunctionMap map[string]JunctionInfo

// ClassifyJunctions analyzes schema tables and returns junction classifications.
// A table is classified as a junction when:
//   - It has exactly 2 foreign keys to different tables
//   - All FK columns are NOT NULL
//   - The primary key covers all FK columns
//   - Both referenced tables exist in the schema
func ClassifyJunctions(s *schema.Schema) JunctionMap {
	result := make(JunctionMap)
	for _, table := range s.Tables {
		if info, ok := classifyTable(s, table); ok {
			result[table.Name] = info
		}
	}
	return result
}

func classifyTable(s *schema.Schema, table schema.Table) (JunctionInfo, bool) {
	if len(table.ForeignKeys) != 2 {
		return JunctionInfo{}, false
	}

	fk1 := table.ForeignKeys[0]
	fk2 := table.ForeignKeys[1]

	// Self-referential pairs are not a table-to-table link.
	if fk1.ReferencedTable == fk2.ReferencedTable {
		return JunctionInfo{}, false
	}
	if !s.HasTable(fk1.ReferencedTable) || !s.HasTable(fk2.ReferencedTable) {
		return JunctionInfo{}, false
	}

	fkCols := map[string]bool{
		fk1.ColumnName: true,
		fk2.ColumnName: true,
	}

	for _, col := range table.Columns {
		if fkCols[col.Name] && col.IsNullable {
			return JunctionInfo{}, false
		}
	}

	if !primaryKeyCovers(table, fkCols) {
		return JunctionInfo{}, false
	}

	var attrs []string
	for _, col := range table.Columns {
		if !fkCols[col.Name] {
			attrs = append(attrs, col.Name)
		}
	}
	junctionType := PureJunction
	if len(attrs) > 0 {
		junctionType = AttributeJunction
	}

	left, right := fk1.ReferencedTable, fk2.ReferencedTable
	if left > right {
		left, right = right, left
	}

	return JunctionInfo{
		Table:            table.Name,
		Type:             junctionType,
		LeftTable:        left,
		RightTable:       right,
		AttributeColumns: attrs,
	}, true
}

func primaryKeyCovers(table schema.Table, fkCols map[string]bool) bool {
	pkCols := make(map[string]bool, len(table.PrimaryKeys))
	for _, name := range table.PrimaryKeys {
		pkCols[name] = true
	}
	for col := range fkCols {
		if !pkCols[col] {
			return false
		}
	}
	return true
}
