package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/usecase/repository"
)

// QueryOption configures a DBQuery.
type QueryOption func(*DBQuery)

// WithQueryParamProcessor sets a hook applied to params before this query is formatted.
func WithQueryParamProcessor(fn ParamProcessor) QueryOption {
	return func(q *DBQuery) { q.paramProcessor = fn }
}

// WithQueryPostProcessor sets a hook applied to the table this query returns.
func WithQueryPostProcessor(fn PostProcessor) QueryOption {
	return func(q *DBQuery) { q.postProcessor = fn }
}

// WithCountTemplate replaces the derived row-count template.
func WithCountTemplate(template string) QueryOption {
	return func(q *DBQuery) { q.countTemplate = template }
}

// DBQuery runs one query template against a named pool.
type DBQuery struct {
	template string
	pool     string
	provider repository.ConnectionProvider
	logger   *logrus.Logger

	paramProcessor ParamProcessor
	postProcessor  PostProcessor

	countTemplate string
	fieldTypes    map[string]string
}

// NewDBQuery creates an executor for template on pool.
func NewDBQuery(template, pool string, provider repository.ConnectionProvider, logger *logrus.Logger, opts ...QueryOption) *DBQuery {
	q := &DBQuery{template: template, pool: pool, provider: provider, logger: logger}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Template returns the query template.
func (q *DBQuery) Template() string { return q.template }

// Pool returns the pool name.
func (q *DBQuery) Pool() string { return q.pool }

// SetCountTemplate replaces the derived row-count template.
func (q *DBQuery) SetCountTemplate(template string) { q.countTemplate = template }

// FieldTypes returns the column type tags seen on the first execution.
func (q *DBQuery) FieldTypes() map[string]string {
	out := make(map[string]string, len(q.fieldTypes))
	for k, v := range q.fieldTypes {
		out[k] = v
	}
	return out
}

// Run formats the template with params, executes it and returns the result
// with values cast according to the column types.
func (q *DBQuery) Run(ctx context.Context, params query.Params) (*table.Table, error) {
	if err := query.Validate(q.template); err != nil {
		return nil, err
	}
	params = applyParams(q.paramProcessor, params)

	text, binds, err := query.Format(q.template, params)
	if err != nil {
		return nil, err
	}
	rows, err := q.execute(ctx, text, binds)
	if err != nil {
		return nil, err
	}

	if q.fieldTypes == nil {
		q.fieldTypes = make(map[string]string, len(rows.Columns))
		for _, c := range rows.Columns {
			q.fieldTypes[c.Name] = c.DatabaseType
		}
	}

	result := table.New()
	tags := make([]string, len(rows.Columns))
	for i, c := range rows.Columns {
		result.Headers = append(result.Headers, c.Name)
		tags[i] = q.fieldTypes[c.Name]
	}
	for _, raw := range rows.Values {
		row := make([]any, len(tags))
		for i := range row {
			if i < len(raw) {
				row[i] = table.Coerce(tags[i], raw[i])
			}
		}
		result.Rows = append(result.Rows, row)
	}
	result.AppendColumnTypes(q.fieldTypes)

	return applyPost(q.postProcessor, result), nil
}

// Count runs the row-count variant of the template and returns its scalar.
func (q *DBQuery) Count(ctx context.Context, params query.Params) (int64, error) {
	if err := query.Validate(q.template); err != nil {
		return 0, err
	}
	if q.countTemplate == "" {
		count, err := query.BuildCount(q.template)
		if err != nil {
			return 0, err
		}
		q.countTemplate = count
	} else if err := query.Validate(q.countTemplate); err != nil {
		return 0, err
	}
	params = applyParams(q.paramProcessor, params)

	text, binds, err := query.Format(q.countTemplate, params)
	if err != nil {
		return 0, err
	}
	rows, err := q.execute(ctx, text, binds)
	if err != nil {
		return 0, err
	}
	if len(rows.Values) == 0 || len(rows.Values[0]) == 0 {
		return 0, nil
	}
	switch n := table.Coerce("BIGINT", rows.Values[0][0]).(type) {
	case int64:
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("count query returned %T %v", n, n)
	}
}

// execute runs the statement once more after a reconnect when the first
// attempt lost the connection. Any other failure, and a second failure,
// is returned as is.
func (q *DBQuery) execute(ctx context.Context, text string, binds query.Binds) (*query.Rows, error) {
	conn, err := q.provider.Connection(q.pool)
	if err != nil {
		return nil, err
	}
	logger := q.logger.WithFields(logrus.Fields{
		"pool":  q.pool,
		"sql":   text,
		"binds": binds.Names(),
	})

	start := time.Now()
	rows, err := conn.Query(ctx, text, binds)
	if err == nil {
		logger.WithField("duration", time.Since(start)).Debug("query finished")
		return rows, nil
	}
	if !errors.Is(err, query.ErrConnectionLost) {
		logger.WithError(err).Error("query failed")
		return nil, err
	}

	logger.WithError(err).Warn("connection lost, reconnecting")
	if rerr := conn.Reconnect(ctx); rerr != nil {
		return nil, errors.Join(err, fmt.Errorf("reconnect: %w", rerr))
	}
	rows, err = conn.Query(ctx, text, binds)
	if err != nil {
		logger.WithError(err).Error("query failed after reconnect")
		return nil, err
	}
	return rows, nil
}
