package query

import (
	"fmt"
	"regexp"
	"strings"
)

const tautology = " 1=1 "

var (
	placeholderRe = regexp.MustCompile(`\$\{[^}]+\}`)
	inClauseRe    = regexp.MustCompile(`(?is)^(\S+)\s+in\s*\([^)]+\)$`)
	orTautologyRe = regexp.MustCompile(`(?i) or 1=1\b`)
)

// Format rewrites a query template into executable SQL and its binds.
//
// A ${name} placeholder whose parameter is absent, nil, "" or an empty list
// turns its whole condition into 1=1. A scalar becomes the marker :name; a
// list becomes :name_0,:name_1,... and nil items inside the list rewrite an
// enclosing "col in (...)" into a null-aware form. Plain :name markers written
// in the template are bound straight from params.
func Format(template string, params Params) (string, Binds, error) {
	sql, err := neutralize(template, params)
	if err != nil {
		return "", nil, err
	}

	binds := Binds{}
	for _, name := range params.sortedNames() {
		token := "${" + name + "}"
		if !strings.Contains(sql, token) {
			continue
		}
		value := params[name]
		items, isList := sequence(value)
		if !isList {
			sql = strings.ReplaceAll(sql, token, ":"+name)
			binds[":"+name] = value
			continue
		}

		markers := make([]string, 0, len(items))
		hasNull := false
		for i, item := range items {
			if item == nil {
				hasNull = true
				continue
			}
			marker := fmt.Sprintf(":%s_%d", name, i)
			markers = append(markers, marker)
			binds[marker] = item
		}
		list := strings.Join(markers, ",")
		if hasNull {
			if sql, err = rewriteNullable(sql, token, list); err != nil {
				return "", nil, err
			}
		}
		sql = strings.ReplaceAll(sql, token, list)
	}

	literal := make(map[string]bool)
	for _, m := range NamedMarkers(template) {
		literal[":"+m.Name] = true
	}
	for name, value := range params {
		marker := name
		if !strings.HasPrefix(marker, ":") {
			marker = ":" + marker
		}
		if _, bound := binds[marker]; !bound && literal[marker] {
			binds[marker] = value
		}
	}

	sql = compact(dropOrTautologies(compact(sql)))
	return strings.TrimSpace(sql), binds, nil
}

// compact collapses whitespace runs outside literals and comments into one
// space. A line comment keeps its terminating newline.
func compact(sql string) string {
	mask := literalMask(sql)
	var b strings.Builder
	b.Grow(len(sql))
	for i := 0; i < len(sql); i++ {
		if mask[i] || !isSpace(sql[i]) {
			b.WriteByte(sql[i])
			continue
		}
		for i+1 < len(sql) && !mask[i+1] && isSpace(sql[i+1]) {
			i++
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// dropOrTautologies removes the " or 1=1" terms left by neutralized OR
// branches. Matches inside literals and comments stay.
func dropOrTautologies(sql string) string {
	mask := literalMask(sql)
	var b strings.Builder
	last := 0
	for _, loc := range orTautologyRe.FindAllStringIndex(sql, -1) {
		if mask[loc[0]] || mask[loc[1]-1] {
			continue
		}
		b.WriteString(sql[last:loc[0]])
		b.WriteByte(' ')
		last = loc[1]
	}
	b.WriteString(sql[last:])
	return b.String()
}

// neutralize replaces the condition of every blank placeholder with 1=1.
func neutralize(sql string, params Params) (string, error) {
	offset := 0
	for offset < len(sql) {
		loc := placeholderRe.FindStringIndex(sql[offset:])
		if loc == nil {
			break
		}
		begin, finish := offset+loc[0], offset+loc[1]
		name := sql[begin+2 : finish-1]
		value, ok := params[name]
		if !isBlank(value, ok) {
			offset = finish
			continue
		}
		start, end, err := FindClause(sql, begin)
		if err != nil {
			return "", fmt.Errorf("placeholder ${%s}: %w", name, err)
		}
		sql = sql[:start] + tautology + sql[end:]
		offset = start + len(tautology)
	}
	return sql, nil
}

// rewriteNullable turns each "col in (${name})" condition into
// "(col in (${name}) or col is null)", or "col is null" when the list holds
// nothing but nil.
func rewriteNullable(sql, token, list string) (string, error) {
	offset := 0
	for {
		idx := strings.Index(sql[offset:], token)
		if idx < 0 {
			return sql, nil
		}
		idx += offset
		start, end, err := FindClause(sql, idx)
		if err != nil {
			return "", err
		}
		condition := strings.TrimSpace(sql[start:end])
		m := inClauseRe.FindStringSubmatch(condition)
		if m == nil {
			return "", fmt.Errorf("%w: null value used in %q", ErrUnsupportedCondition, condition)
		}
		replacement := m[1] + " is null"
		if list != "" {
			replacement = "(" + condition + " or " + m[1] + " is null)"
		}
		replacement = " " + replacement + " "
		sql = sql[:start] + replacement + sql[end:]
		offset = start + len(replacement)
	}
}
