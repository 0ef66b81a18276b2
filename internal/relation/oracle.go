package relation

import "context"

// TableDescription pairs a table name with its free-text description for the
// semantic oracle.
type TableDescription struct {
	Name        string
	Description string
}

// Judgment is a single semantic verdict from the oracle. The inferrer treats
// every field as untrusted until validated against the schema.
type Judgment struct {
	Table1     string  `json:"table1"`
	Table2     string  `json:"table2"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// SemanticOracle produces advisory table-pair judgments from descriptions.
// Implementations are best-effort: an error or empty result only means the
// semantic pass contributes nothing, never that inference fails.
type SemanticOracle interface {
	JudgeRelationships(ctx context.Context, tables []TableDescription) ([]Judgment, error)
}
