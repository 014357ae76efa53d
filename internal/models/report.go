package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
)

// ReportDefinition is a persisted report.Definition.
type ReportDefinition struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Name         string    `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Title        string    `json:"title" gorm:"size:255;not null"`
	Description  string    `json:"description" gorm:"size:1000"`
	Queries      QueryList `json:"queries" gorm:"type:jsonb;not null"`
	GroupColumns int       `json:"group_columns" gorm:"not null;default:1"`
	Pager        bool      `json:"pager"`
	DefaultSort  bool      `json:"default_sort"`
	Params       JSON      `json:"params,omitempty" gorm:"type:jsonb"`
	Layout       Layout    `json:"layout" gorm:"type:jsonb"`
	CreatedBy    string    `json:"created_by" gorm:"size:255"`
	UpdatedBy    string    `json:"updated_by" gorm:"size:255"`
}

// TableName specifies the table name for the ReportDefinition model
func (ReportDefinition) TableName() string {
	return "report_definitions"
}

// Definition converts the row into the domain type.
func (r ReportDefinition) Definition() report.Definition {
	return report.Definition{
		Name:         r.Name,
		Title:        r.Title,
		Queries:      append([]report.Query(nil), r.Queries...),
		GroupColumns: r.GroupColumns,
		Pager:        r.Pager,
		DefaultSort:  r.DefaultSort,
		Params:       query.Params(r.Params),
		Pivot:        r.Layout.Pivot,
		Percentages:  r.Layout.Percentages,
		Headers:      r.Layout.Headers,
	}
}

// NewReportDefinition converts a domain definition into a row.
func NewReportDefinition(def report.Definition) *ReportDefinition {
	return &ReportDefinition{
		Name:         def.Name,
		Title:        def.Title,
		Queries:      QueryList(def.Queries),
		GroupColumns: def.GroupColumns,
		Pager:        def.Pager,
		DefaultSort:  def.DefaultSort,
		Params:       JSON(def.Params),
		Layout: Layout{
			Pivot:       def.Pivot,
			Percentages: def.Percentages,
			Headers:     def.Headers,
		},
	}
}

// QueryList stores the ordered report queries as a JSON array.
type QueryList []report.Query

func (q QueryList) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	return jsonValue(q)
}

func (q *QueryList) Scan(value interface{}) error {
	return scanJSON(value, q)
}

// Layout holds the table shaping applied after the queries are merged.
type Layout struct {
	Pivot       *report.Pivot       `json:"pivot,omitempty"`
	Percentages []report.Percentage `json:"percentages,omitempty"`
	Headers     map[string]string   `json:"headers,omitempty"`
}

func (l Layout) Value() (driver.Value, error) {
	return jsonValue(l)
}

func (l *Layout) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// JSON is a custom type for handling JSONB data
type JSON map[string]interface{}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return jsonValue(j)
}

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return scanJSON(value, j)
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst any) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
	return json.Unmarshal(bytes, dst)
}
