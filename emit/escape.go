package emit

import "strings"

// The escape routines below are the single path between IR values and shell
// text. No other code in this module, or anywhere in the pipeline, builds a
// shell word from raw text.

// shellSafe reports whether text can appear as an unquoted word: non-empty,
// and composed only of characters the shell never interprets.
func shellSafe(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case c == '_' || c == '.' || c == '/' || c == ':' || c == '=' ||
			c == '%' || c == '+' || c == ',' || c == '-' || c == '@':
		default:
			return false
		}
	}
	return true
}

// quoteLiteral renders constant text as one shell word. Safe text stays bare;
// everything else is single-quoted, with embedded single quotes spliced out
// through a backslashed quote. Single quotes suppress every expansion, so the
// emitted word always reproduces the literal byte-for-byte.
func quoteLiteral(text string) string {
	if shellSafe(text) {
		return text
	}
	return "'" + strings.ReplaceAll(text, "'", `'\''`) + "'"
}

// escapeDoubleQuoted renders constant text for interpolation inside an
// already-open double-quoted string: the four characters the shell still
// interprets there get a backslash.
func escapeDoubleQuoted(text string) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '"', '$', '`', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// escapeExpansionWord renders constant text inside a ${name:-word} default.
// The word sits in double-quote context, but the shell also ends the whole
// expansion at the first unescaped closing brace, so } gains a backslash too.
func escapeExpansionWord(text string) string {
	var sb strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '"', '$', '`', '\\', '}':
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
