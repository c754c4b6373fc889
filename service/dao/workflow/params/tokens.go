package params

import (
	"github.com/viant/parsly"
)

// Token codes
const (
	textCode = iota + 1
	placeholderCode
)

// Token definitions
var (
	textToken        = parsly.NewToken(textCode, "Text", &textMatcher{})
	placeholderToken = parsly.NewToken(placeholderCode, "Placeholder", &placeholderMatcher{})
)

// placeholderMatcher matches a complete ${identifier} reference.
type placeholderMatcher struct{}

func (m *placeholderMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos+4 > size { // shortest placeholder is ${x}
		return 0
	}
	if input[pos] != '$' || input[pos+1] != '{' {
		return 0
	}
	i := pos + 2
	if !isLetter(input[i]) && input[i] != '_' {
		return 0
	}
	i++
	for i < size && (isLetter(input[i]) || isDigit(input[i]) || input[i] == '_') {
		i++
	}
	if i >= size || input[i] != '}' {
		return 0
	}
	return i + 1 - pos
}

// textMatcher matches literal text up to the next $ or end of input.
type textMatcher struct{}

func (m *textMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '$' && i > pos {
			break
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
