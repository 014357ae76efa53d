package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/usecase/repository"
)

// Page selects a slice of a paged report. Number starts at 1.
type Page struct {
	Number int `json:"page" query:"page"`
	Size   int `json:"page_size" query:"page_size"`
}

// Result is a built report.
type Result struct {
	Table    *table.Table `json:"table"`
	Total    int64        `json:"total,omitempty"`
	Page     int          `json:"page,omitempty"`
	PageSize int          `json:"page_size,omitempty"`
}

// ReportRunner builds reports from their definitions.
type ReportRunner struct {
	Connections repository.ConnectionProvider
	Definitions repository.DefinitionRepository
	Logger      *logrus.Logger

	DefaultPageSize int
	MaxPageSize     int
}

// NewReportRunner wires a runner from its dependencies.
func NewReportRunner(conns repository.ConnectionProvider, defs repository.DefinitionRepository, logger *logrus.Logger) *ReportRunner {
	return &ReportRunner{
		Connections:     conns,
		Definitions:     defs,
		Logger:          logger,
		DefaultPageSize: 50,
		MaxPageSize:     1000,
	}
}

// Builder creates a TableBuilder with the definition's queries registered.
func (r *ReportRunner) Builder(def report.Definition) *TableBuilder {
	b := NewTableBuilder(r.Connections, r.Logger,
		WithGroupColumnNumber(def.GroupColumns),
		WithPager(def.Pager),
		WithDefaultSort(def.DefaultSort),
	)
	for _, q := range def.Queries {
		var opts []QueryOption
		if q.CountSQL != "" {
			opts = append(opts, WithCountTemplate(q.CountSQL))
		}
		b.AddQuery(q.SQL, q.Pool, opts...)
	}
	return b
}

// Run builds a report from its definition. Paged definitions get "limit" and
// "offset" params for the requested page.
func (r *ReportRunner) Run(ctx context.Context, def report.Definition, params query.Params, page Page) (*Result, error) {
	logger := r.Logger.WithField("report", def.Name)

	params = def.MergedParams(params)
	res := &Result{}
	if def.Pager {
		page = r.normalize(page)
		params["limit"] = page.Size
		params["offset"] = (page.Number - 1) * page.Size
		res.Page, res.PageSize = page.Number, page.Size
	}

	b := r.Builder(def)
	t, err := b.Build(ctx, params)
	if err != nil {
		logger.WithError(err).Error("report build failed")
		return nil, fmt.Errorf("report %s: %w", def.Name, err)
	}
	if t, err = def.Shape(t); err != nil {
		return nil, fmt.Errorf("report %s: %w", def.Name, err)
	}
	res.Table = t
	res.Total = b.TotalCount()
	return res, nil
}

// RunByName loads a definition and runs it.
func (r *ReportRunner) RunByName(ctx context.Context, name string, params query.Params, page Page) (*Result, error) {
	def, err := r.Definitions.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, def, params, page)
}

func (r *ReportRunner) normalize(p Page) Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = r.DefaultPageSize
	}
	if r.MaxPageSize > 0 && p.Size > r.MaxPageSize {
		p.Size = r.MaxPageSize
	}
	return p
}
