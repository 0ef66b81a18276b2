// Package schema models a relational schema snapshot and extracts it from a
// MySQL/MariaDB catalog. The snapshot is read-only: re-running extraction
// replaces it wholesale.
package schema

// Column represents a database column.
type Column struct {
	Name         string
	DataType     string
	ColumnType   string
	IsNullable   bool
	IsPrimaryKey bool
	Comment      string
	// EnumValues holds the literal values when the declared type is ENUM.
	// The declared type is not otherwise interpreted.
	EnumValues []string
}

// ForeignKey represents one column of a foreign key constraint.
type ForeignKey struct {
	ColumnName       string // e.g. "user_id"
	ReferencedTable  string // e.g. "users"
	ReferencedColumn string // e.g. "user_id"
	ConstraintName   string
	OrdinalPosition  int
}

// Table represents a database table.
type Table struct {
	Name        string
	Comment     string
	PrimaryKeys []string // ordered as declared
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Schema represents an extracted database schema snapshot.
type Schema struct {
	DatabaseName string
	Tables       []Table
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// HasTable reports whether a table with the given name exists.
func (s *Schema) HasTable(name string) bool {
	return s.Table(name) != nil
}

// TableNames returns all table names in extraction order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		names = append(names, t.Name)
	}
	return names
}

// Column returns the named column of a table, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// PrimaryKey returns the first primary key column name, or "" when the table
// has no primary key.
func (t *Table) PrimaryKey() string {
	if len(t.PrimaryKeys) == 0 {
		return ""
	}
	return t.PrimaryKeys[0]
}
