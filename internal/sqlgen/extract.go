package sqlgen

import (
	"fmt"
	"strings"
)

// statements that read data; everything else is rejected.
var allowedPrefixes = []string{"SELECT", "WITH"}

// ExtractSQL pulls the SQL statement out of a model response. Models wrap
// statements in markdown fences, prepend prose, or add line comments; all of
// that is stripped before the statement is checked to be read-only.
func ExtractSQL(raw string) (string, error) {
	cleaned := stripFences(raw)
	cleaned = stripLineComments(cleaned)
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimSuffix(cleaned, ";")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", fmt.Errorf("response contains no SQL")
	}
	if err := checkReadOnly(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// stripFences removes markdown code fences, keeping only the fenced content
// when fences are present.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return raw
	}

	var inFence bool
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		// Unbalanced fences; fall back to dropping fence lines only.
		for _, line := range strings.Split(raw, "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "```") {
				kept = append(kept, line)
			}
		}
	}
	return strings.Join(kept, "\n")
}

func stripLineComments(sql string) string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func checkReadOnly(sql string) error {
	upper := strings.ToUpper(sql)
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return nil
		}
	}
	head := strings.Fields(upper)
	if len(head) == 0 {
		return fmt.Errorf("response contains no SQL")
	}
	return fmt.Errorf("refusing non-SELECT statement starting with %s", head[0])
}
