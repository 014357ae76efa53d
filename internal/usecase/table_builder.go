package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/usecase/repository"
)

// DefaultPool is used by AddQuery callers that do not name a pool.
const DefaultPool = "default"

var isoDatePrefix = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}`)

// BuilderOption configures a TableBuilder.
type BuilderOption func(*TableBuilder)

// WithGroupColumnNumber sets how many leading columns identify a row when
// query results are merged.
func WithGroupColumnNumber(n int) BuilderOption {
	return func(b *TableBuilder) {
		if n > 0 {
			b.groupColumns = n
		}
	}
}

// WithPager makes Build also run the first query's count.
func WithPager(enabled bool) BuilderOption {
	return func(b *TableBuilder) { b.pager = enabled }
}

// WithDefaultSort toggles sorting date-keyed reports newest first.
func WithDefaultSort(enabled bool) BuilderOption {
	return func(b *TableBuilder) { b.defaultSort = enabled }
}

// WithParamProcessor sets a hook applied to params once per Build.
func WithParamProcessor(fn ParamProcessor) BuilderOption {
	return func(b *TableBuilder) { b.paramProcessor = fn }
}

// WithPostProcessor sets a hook applied to the merged table.
func WithPostProcessor(fn PostProcessor) BuilderOption {
	return func(b *TableBuilder) { b.postProcessor = fn }
}

// TableBuilder runs several queries with one parameter set and merges their
// results into a single report table. A builder is not safe for concurrent
// use; create one per report run.
type TableBuilder struct {
	provider repository.ConnectionProvider
	logger   *logrus.Logger

	groupColumns   int
	pager          bool
	defaultSort    bool
	paramProcessor ParamProcessor
	postProcessor  PostProcessor

	queries    []*DBQuery
	totalCount int64
}

// NewTableBuilder creates a builder that merges on the first column and sorts
// date-keyed results newest first.
func NewTableBuilder(provider repository.ConnectionProvider, logger *logrus.Logger, opts ...BuilderOption) *TableBuilder {
	b := &TableBuilder{
		provider:     provider,
		logger:       logger,
		groupColumns: 1,
		defaultSort:  true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddQuery registers a query template. Results are merged in registration order.
func (b *TableBuilder) AddQuery(template, pool string, opts ...QueryOption) *DBQuery {
	if pool == "" {
		pool = DefaultPool
	}
	q := NewDBQuery(template, pool, b.provider, b.logger, opts...)
	b.queries = append(b.queries, q)
	return q
}

// Queries returns the registered executors.
func (b *TableBuilder) Queries() []*DBQuery { return b.queries }

// TotalCount returns the row count of the last paged Build.
func (b *TableBuilder) TotalCount() int64 { return b.totalCount }

// Build runs every query and sums their results into one table. Any failure
// aborts the build.
func (b *TableBuilder) Build(ctx context.Context, params query.Params) (*table.Table, error) {
	start := time.Now()
	params = applyParams(b.paramProcessor, params)

	result := table.New()
	for i, q := range b.queries {
		queryStart := time.Now()
		t, err := q.Run(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i+1, err)
		}
		if err := result.Merge(t, table.Sum, b.groupColumns); err != nil {
			return nil, fmt.Errorf("merge query %d: %w", i+1, err)
		}
		b.logger.WithFields(logrus.Fields{
			"query":    i + 1,
			"pool":     q.Pool(),
			"rows":     t.Len(),
			"duration": time.Since(queryStart),
		}).Debug("query merged")
	}

	if b.defaultSort && startsWithDate(result) {
		result.SortByColumn(0, true)
	}
	result = applyPost(b.postProcessor, result)

	if b.pager && len(b.queries) > 0 {
		total, err := b.queries[0].Count(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		b.totalCount = total
	}

	b.logger.WithFields(logrus.Fields{
		"queries":  len(b.queries),
		"rows":     result.Len(),
		"columns":  len(result.Headers),
		"duration": time.Since(start),
	}).Info("report built")
	return result, nil
}

func startsWithDate(t *table.Table) bool {
	if len(t.Rows) == 0 || len(t.Rows[0]) == 0 {
		return false
	}
	switch v := t.Rows[0][0].(type) {
	case time.Time:
		return !v.IsZero()
	case string:
		return isoDatePrefix.MatchString(v)
	case []byte:
		return isoDatePrefix.Match(v)
	}
	return false
}
