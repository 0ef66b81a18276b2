package schema

import (
	"fmt"
	"strings"
)

// parseEnumValues interprets INFORMATION_SCHEMA.COLUMNS.COLUMN_TYPE for ENUM
// columns, e.g. enum('active','inactive','suspended'). Values may contain
// escaped quotes ('' or \') per MySQL quoting rules.
func parseEnumValues(columnType string) ([]string, error) {
	trimmed := strings.TrimSpace(columnType)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(lower, ")") {
		return nil, fmt.Errorf("not an enum definition: %s", columnType)
	}

	body := trimmed[len("enum(") : len(trimmed)-1]
	var values []string
	i := 0
	for i < len(body) {
		for i < len(body) && (body[i] == ' ' || body[i] == ',') {
			i++
		}
		if i >= len(body) {
			break
		}
		if body[i] != '\'' {
			return nil, fmt.Errorf("expected opening quote at position %d", i)
		}
		i++
		var sb strings.Builder
		closed := false
		for i < len(body) {
			ch := body[i]
			if ch == '\\' && i+1 < len(body) {
				sb.WriteByte(body[i+1])
				i += 2
				continue
			}
			if ch == '\'' {
				if i+1 < len(body) && body[i+1] == '\'' {
					sb.WriteByte('\'')
					i += 2
					continue
				}
				i++
				closed = true
				break
			}
			sb.WriteByte(ch)
			i++
		}
		if !closed {
			return nil, fmt.Errorf("unterminated enum value")
		}
		values = append(values, sb.String())
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no enum values parsed")
	}
	return values, nil
}
