package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnumValues(t *testing.T) {
	tests := []struct {
		name       string
		columnType string
		want       []string
	}{
		{
			name:       "simple",
			columnType: "enum('active','inactive','suspended')",
			want:       []string{"active", "inactive", "suspended"},
		},
		{
			name:       "single value",
			columnType: "enum('yes')",
			want:       []string{"yes"},
		},
		{
			name:       "doubled quote escape",
			columnType: "enum('it''s','plain')",
			want:       []string{"it's", "plain"},
		},
		{
			name:       `backslash escape`,
			columnType: `enum('a\'b','c')`,
			want:       []string{"a'b", "c"},
		},
		{
			name:       "spaces between values",
			columnType: "enum('a', 'b', 'c')",
			want:       []string{"a", "b", "c"},
		},
		{
			name:       "uppercase keyword",
			columnType: "ENUM('x','y')",
			want:       []string{"x", "y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEnumValues(tt.columnType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEnumValues_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		columnType string
	}{
		{name: "not an enum", columnType: "varchar(255)"},
		{name: "empty body", columnType: "enum()"},
		{name: "unterminated value", columnType: "enum('abc"},
		{name: "missing opening quote", columnType: "enum(abc)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseEnumValues(tt.columnType)
			assert.Error(t, err)
		})
	}
}
