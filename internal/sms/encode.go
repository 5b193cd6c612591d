package sms

import "strings"

const upperHex = "0123456789ABCDEF"

// FormEncode percent-encodes s for an application/x-www-form-urlencoded body:
// ASCII letters and digits pass through, space becomes '+', every other byte
// becomes %XX with upper-case hex.
func FormEncode(s string) string {
	var b strings.Builder

	b.Grow(len(s) * 3)

	for i := range len(s) {
		c := s[i]

		switch {
		case c == ' ':
			b.WriteByte('+')
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f])
		}
	}

	return b.String()
}

// formBody encodes ordered key/value pairs.
func formBody(pairs ...string) string {
	var b strings.Builder

	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}

		b.WriteString(FormEncode(pairs[i]))
		b.WriteByte('=')
		b.WriteString(FormEncode(pairs[i+1]))
	}

	return b.String()
}
