package sql

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"sqlreport/internal/domain/query"
)

// Placeholder is the positional argument style a driver expects.
type Placeholder int

const (
	Question Placeholder = iota // ?
	Dollar                      // $1, $2, ...
)

// PlaceholderFor returns the style used by a database/sql driver name.
func PlaceholderFor(driver string) Placeholder {
	switch strings.ToLower(driver) {
	case "postgres", "pgx", "pgx/v5", "postgresql":
		return Dollar
	}
	return Question
}

// Rebinder rewrites ":name" markers into positional placeholders. Marker
// positions are cached per SQL text.
type Rebinder struct {
	style   Placeholder
	markers *lru.Cache[string, []query.Marker]
}

// NewRebinder creates a rebinder that remembers up to size statements.
func NewRebinder(style Placeholder, size int) (*Rebinder, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []query.Marker](size)
	if err != nil {
		return nil, err
	}
	return &Rebinder{style: style, markers: cache}, nil
}

// Rebind returns the SQL with positional placeholders and the arguments in
// placeholder order.
func (r *Rebinder) Rebind(sql string, binds query.Binds) (string, []any, error) {
	markers, ok := r.markers.Get(sql)
	if !ok {
		markers = query.NamedMarkers(sql)
		r.markers.Add(sql, markers)
	}
	return rebind(sql, markers, binds, r.style)
}

// Rebind is the uncached form of Rebinder.Rebind.
func Rebind(sql string, binds query.Binds, style Placeholder) (string, []any, error) {
	return rebind(sql, query.NamedMarkers(sql), binds, style)
}

func rebind(sql string, markers []query.Marker, binds query.Binds, style Placeholder) (string, []any, error) {
	if len(markers) == 0 {
		return sql, nil, nil
	}
	var b strings.Builder
	b.Grow(len(sql))
	args := make([]any, 0, len(markers))
	last := 0
	for _, m := range markers {
		value, ok := binds[":"+m.Name]
		if !ok {
			return "", nil, fmt.Errorf("%w: :%s", ErrMissingBind, m.Name)
		}
		b.WriteString(sql[last:m.Start])
		args = append(args, value)
		if style == Dollar {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(args)))
		} else {
			b.WriteByte('?')
		}
		last = m.End
	}
	b.WriteString(sql[last:])
	return b.String(), args, nil
}
