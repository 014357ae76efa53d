package query

import (
	"fmt"
	"strings"
)

var (
	clauseOpeners = []string{"and", "or", "where"}
	clauseClosers = []string{"and", "or", "group", "order", "limit", "where"}
)

// FindClause locates the boolean condition around the byte offset of a
// placeholder and returns its span [start, end).
//
// Boundary grammar, all keywords case-insensitive and whitespace delimited:
//
//	start: just past the nearest AND | OR | WHERE before offset
//	end:   the nearest AND | OR | GROUP | ORDER | LIMIT | WHERE | ") as" after
//	       offset, else the end of the text; then moved left over surplus ")"
//	       until the span is balanced
//
// Quoted literals and comments are never treated as keywords or brackets.
// A span without a left keyword, one that still holds an unclosed "(", or one
// that no longer contains the placeholder is rejected with
// ErrUnsupportedCondition. So is a span cut out of a "x BETWEEN a AND b"
// range: its AND is part of the predicate, not a boundary.
func FindClause(sql string, offset int) (int, int, error) {
	mask := literalMask(sql)

	start, opener := -1, -1
	for i := offset - 1; i > 0 && start < 0; i-- {
		if mask[i] {
			continue
		}
		for _, kw := range clauseOpeners {
			if i+len(kw) < offset && spacedKeywordAt(sql, i, kw) {
				start, opener = i+len(kw), i
				break
			}
		}
	}
	if start < 0 {
		return 0, 0, fmt.Errorf("%w: no AND/OR/WHERE before %q", ErrUnsupportedCondition, excerpt(sql, offset))
	}

	end := len(sql)
scan:
	for i := offset; i < len(sql); i++ {
		if mask[i] {
			continue
		}
		if aliasCloseAt(sql, i) {
			end = i
			break
		}
		for _, kw := range clauseClosers {
			if spacedKeywordAt(sql, i, kw) {
				end = i
				break scan
			}
		}
	}

	open, closed := countBrackets(sql, mask, start, end)
	for ; closed > open; closed-- {
		j := end - 1
		for j > start && (mask[j] || sql[j] != ')') {
			j--
		}
		if j <= start {
			break
		}
		end = j
	}

	open, closed = countBrackets(sql, mask, start, end)
	if open != closed || end <= offset {
		return 0, 0, fmt.Errorf("%w: cannot bound %q", ErrUnsupportedCondition, strings.TrimSpace(sql[start:end]))
	}

	splitLeft := strings.EqualFold(sql[opener:start], "and") && betweenBefore(sql, mask, opener)
	splitRight := end < len(sql) && spacedKeywordAt(sql, end, "and") &&
		len(topLevel(sql[start:end], mask[start:end], "between")) > 0
	if splitLeft || splitRight {
		return 0, 0, fmt.Errorf("%w: placeholder inside BETWEEN range near %q", ErrUnsupportedCondition, excerpt(sql, offset))
	}
	return start, end, nil
}

// betweenBefore reports whether a BETWEEN keyword precedes pos at the same
// bracket depth with no AND/OR/WHERE boundary in between.
func betweenBefore(sql string, mask []bool, pos int) bool {
	depth := 0
	for i := pos - 1; i >= 0; i-- {
		if mask[i] {
			continue
		}
		switch sql[i] {
		case ')':
			depth++
			continue
		case '(':
			if depth == 0 {
				return false
			}
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if _, ok := tokenAt(sql, i, "between"); ok {
			return true
		}
		for _, kw := range clauseOpeners {
			if spacedKeywordAt(sql, i, kw) {
				return false
			}
		}
	}
	return false
}

func countBrackets(sql string, mask []bool, start, end int) (open, closed int) {
	for i := start; i < end; i++ {
		if mask[i] {
			continue
		}
		switch sql[i] {
		case '(':
			open++
		case ')':
			closed++
		}
	}
	return open, closed
}

func excerpt(sql string, offset int) string {
	end := offset + 40
	if end > len(sql) {
		end = len(sql)
	}
	return sql[offset:end]
}
