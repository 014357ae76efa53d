package query

import "strings"

// The scanner below is deliberately not a SQL parser. It knows about quoted
// text, comments, parenthesis depth and keyword tokens, which is all the
// clause and count rewriting needs.

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIdent(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// skipQuoted returns the index just past the literal opened at sql[i].
// Doubled quotes and backslash escapes stay inside the literal.
func skipQuoted(sql string, i int) int {
	q := sql[i]
	j := i + 1
	for j < len(sql) {
		switch {
		case sql[j] == q && j+1 < len(sql) && sql[j+1] == q:
			j += 2
		case sql[j] == q:
			return j + 1
		case sql[j] == '\\' && q != '`':
			j += 2
		default:
			j++
		}
	}
	return len(sql)
}

func skipLineComment(sql string, i int) int {
	if j := strings.IndexByte(sql[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(sql)
}

func skipBlockComment(sql string, i int) int {
	if j := strings.Index(sql[i+2:], "*/"); j >= 0 {
		return i + 2 + j + 2
	}
	return len(sql)
}

// literalMask marks every byte that belongs to a quoted literal or a comment.
func literalMask(sql string) []bool {
	mask := make([]bool, len(sql))
	for i := 0; i < len(sql); {
		end := i
		switch {
		case sql[i] == '\'' || sql[i] == '"' || sql[i] == '`':
			end = skipQuoted(sql, i)
		case strings.HasPrefix(sql[i:], "--"):
			end = skipLineComment(sql, i)
		case strings.HasPrefix(sql[i:], "/*"):
			end = skipBlockComment(sql, i)
		}
		if end == i {
			i++
			continue
		}
		for ; i < end; i++ {
			mask[i] = true
		}
	}
	return mask
}

// spacedKeywordAt reports whether kw occurs at sql[i] with whitespace on both
// sides (case-insensitive). This is the boundary rule for WHERE clauses.
func spacedKeywordAt(sql string, i int, kw string) bool {
	end := i + len(kw)
	if i <= 0 || end >= len(sql) {
		return false
	}
	return isSpace(sql[i-1]) && isSpace(sql[end]) && strings.EqualFold(sql[i:end], kw)
}

// aliasCloseAt reports whether sql[i] is the ")" of a ") as" sequence.
func aliasCloseAt(sql string, i int) bool {
	if sql[i] != ')' {
		return false
	}
	j := i + 1
	for j < len(sql) && isSpace(sql[j]) {
		j++
	}
	return j > i+1 && spacedKeywordAt(sql, j, "as")
}

// tokenAt reports whether the words occur at sql[i] as whole identifiers,
// separated by whitespace. Bind markers, placeholders and qualified names
// never match. It returns the index just past the last word.
func tokenAt(sql string, i int, words ...string) (int, bool) {
	if i > 0 && (isIdent(sql[i-1]) || strings.IndexByte(":.${", sql[i-1]) >= 0) {
		return 0, false
	}
	j := i
	for n, w := range words {
		if n > 0 {
			k := j
			for k < len(sql) && isSpace(sql[k]) {
				k++
			}
			if k == j {
				return 0, false
			}
			j = k
		}
		if j+len(w) > len(sql) || !strings.EqualFold(sql[j:j+len(w)], w) {
			return 0, false
		}
		j += len(w)
	}
	if j < len(sql) && isIdent(sql[j]) {
		return 0, false
	}
	return j, true
}

// topLevel lists the offsets at which the phrase occurs outside literals and
// outside any parenthesis.
func topLevel(sql string, mask []bool, words ...string) []int {
	var out []int
	depth := 0
	for i := 0; i < len(sql); i++ {
		if mask[i] {
			continue
		}
		switch sql[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if _, ok := tokenAt(sql, i, words...); ok {
			out = append(out, i)
		}
	}
	return out
}

// Marker is a ":name" bind marker located in a SQL text.
type Marker struct {
	Name  string
	Start int
	End   int
}

// NamedMarkers finds ":name" markers outside literals and comments. "::"
// casts and markers glued to a preceding identifier are skipped.
func NamedMarkers(sql string) []Marker {
	var out []Marker
	mask := literalMask(sql)
	for i := 0; i < len(sql); i++ {
		if mask[i] || sql[i] != ':' {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == ':' {
			i++
			continue
		}
		if i > 0 && (isIdent(sql[i-1]) || sql[i-1] == ':') {
			continue
		}
		j := i + 1
		for j < len(sql) && isIdent(sql[j]) {
			j++
		}
		if j > i+1 {
			out = append(out, Marker{Name: sql[i+1 : j], Start: i, End: j})
			i = j - 1
		}
	}
	return out
}
