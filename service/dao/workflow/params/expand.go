// Package params implements ${name} placeholder interpolation for
// sub-workflow parameter values against the enclosing parameter scope.
// Placeholders that name an absent scope entry are left untouched.
package params

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Expand substitutes ${name} occurrences in text with the corresponding
// scope values. Text without placeholders is returned unchanged.
func Expand(text string, scope map[string]interface{}) string {
	if !strings.Contains(text, "${") {
		return text
	}
	cursor := parsly.NewCursor("", []byte(text), 0)
	var out strings.Builder
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAny(placeholderToken, textToken)
		switch matched.Code {
		case placeholderCode:
			raw := matched.Text(cursor)
			name := raw[2 : len(raw)-1]
			if value, ok := scope[name]; ok {
				out.WriteString(formatValue(value))
			} else {
				out.WriteString(raw)
			}
		case textCode:
			out.WriteString(matched.Text(cursor))
		default:
			out.WriteByte(cursor.Input[cursor.Pos])
			cursor.Pos++
		}
	}
	return out.String()
}

// ExpandValue applies Expand to string values, descending into maps and
// slices; other value kinds pass through untouched.
func ExpandValue(value interface{}, scope map[string]interface{}) interface{} {
	switch actual := value.(type) {
	case string:
		return Expand(actual, scope)
	case map[string]interface{}:
		expanded := make(map[string]interface{}, len(actual))
		for k, v := range actual {
			expanded[k] = ExpandValue(v, scope)
		}
		return expanded
	case []interface{}:
		expanded := make([]interface{}, len(actual))
		for i, v := range actual {
			expanded[i] = ExpandValue(v, scope)
		}
		return expanded
	}
	return value
}

func formatValue(value interface{}) string {
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprintf("%v", value)
}
