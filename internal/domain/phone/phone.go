// Package phone extracts notification recipients from free-form operator input.
package phone

import "strings"

const (
	// TokenLength is the length of an accepted number, leading '+' included.
	TokenLength = 12
	// Separator joins numbers for persistence.
	Separator = ";"
)

// Parse scans s for '+' markers and returns every well-formed 12-character
// token ('+' and 11 digits). Malformed candidates are dropped silently.
func Parse(s string) []string {
	var phones []string

	for i := 0; i < len(s); {
		start := strings.IndexByte(s[i:], '+')
		if start < 0 {
			break
		}

		start += i

		end := start + TokenLength
		if end > len(s) {
			break
		}

		token := s[start:end]
		if !digitsOnly(token[1:]) {
			i = start + 1

			continue
		}

		phones = append(phones, token)
		i = end
	}

	return phones
}

// Join renders phones in the persisted form.
func Join(phones []string) string {
	return strings.Join(phones, Separator)
}

// Normalize parses s and joins the result, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return Join(Parse(s))
}

func digitsOnly(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
