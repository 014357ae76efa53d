package report

import (
	"errors"
	"fmt"
	"regexp"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ErrInvalidDefinition is returned by Validate.
var ErrInvalidDefinition = errors.New("invalid report definition")

// Query is one SQL template of a report and the pool it runs on.
type Query struct {
	SQL      string `json:"sql"`
	Pool     string `json:"pool,omitempty"`
	CountSQL string `json:"count_sql,omitempty"`
}

// Pivot turns the values of one column into columns of their own.
type Pivot struct {
	Column    string `json:"column"`
	Value     string `json:"value"`
	Aggregate string `json:"aggregate,omitempty"`
}

// Percentage adds Numerator/Denominator as a formatted column.
type Percentage struct {
	Header      string `json:"header"`
	Numerator   string `json:"numerator"`
	Denominator string `json:"denominator"`
}

// Definition describes a report: its SQL templates and how their results are assembled.
type Definition struct {
	Name         string            `json:"name"`
	Title        string            `json:"title"`
	Queries      []Query           `json:"queries"`
	GroupColumns int               `json:"group_columns,omitempty"`
	Pager        bool              `json:"pager,omitempty"`
	DefaultSort  bool              `json:"default_sort"`
	Params       query.Params      `json:"params,omitempty"`
	Pivot        *Pivot            `json:"pivot,omitempty"`
	Percentages  []Percentage      `json:"percentages,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
}

// Validate checks the definition and its SQL templates.
func (d Definition) Validate() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must be lower case letters, digits, '-' or '_'", ErrInvalidDefinition, d.Name)
	}
	if len(d.Queries) == 0 {
		return fmt.Errorf("%w: at least one query is required", ErrInvalidDefinition)
	}
	for i, q := range d.Queries {
		if q.SQL == "" {
			return fmt.Errorf("%w: query %d is empty", ErrInvalidDefinition, i+1)
		}
		if err := query.Validate(q.SQL); err != nil {
			return fmt.Errorf("%w: query %d: %v", ErrInvalidDefinition, i+1, err)
		}
		if q.CountSQL != "" {
			if err := query.Validate(q.CountSQL); err != nil {
				return fmt.Errorf("%w: count query %d: %v", ErrInvalidDefinition, i+1, err)
			}
		}
	}
	if d.Pager && d.Queries[0].CountSQL == "" {
		if _, err := query.BuildCount(d.Queries[0].SQL); err != nil {
			return fmt.Errorf("%w: pager: %v", ErrInvalidDefinition, err)
		}
	}
	if d.Pivot != nil {
		if d.Pivot.Column == "" || d.Pivot.Value == "" {
			return fmt.Errorf("%w: pivot needs column and value", ErrInvalidDefinition)
		}
		if _, err := table.ParseAggregate(d.Pivot.Aggregate); err != nil {
			return fmt.Errorf("%w: pivot: %v", ErrInvalidDefinition, err)
		}
	}
	return nil
}

// Shape applies the declarative post-processing steps to a built table.
func (d Definition) Shape(t *table.Table) (*table.Table, error) {
	if d.Pivot != nil {
		method, err := table.ParseAggregate(d.Pivot.Aggregate)
		if err != nil {
			return nil, err
		}
		if d.Pivot.Aggregate == "" {
			method = table.Sum
		}
		if err := t.Expand(d.Pivot.Column, d.Pivot.Value, method); err != nil {
			return nil, err
		}
	}
	for _, p := range d.Percentages {
		t.AddColumnPercentage(p.Header, p.Numerator, p.Denominator)
	}
	if len(d.Headers) > 0 {
		t.ReplaceHeaders(d.Headers)
	}
	return t, nil
}

// MergedParams returns the definition defaults overridden by params.
func (d Definition) MergedParams(params query.Params) query.Params {
	out := d.Params.Clone()
	for k, v := range params {
		out[k] = v
	}
	return out
}
