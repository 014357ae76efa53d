package usecase

import (
	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
)

// ParamProcessor rewrites the parameters before templates are formatted. It
// receives a copy and may modify it in place.
type ParamProcessor func(params query.Params) query.Params

// PostProcessor reshapes a finished table. Returning nil keeps the input.
type PostProcessor func(t *table.Table) *table.Table

func applyParams(fn ParamProcessor, params query.Params) query.Params {
	if params == nil {
		params = query.Params{}
	}
	if fn == nil {
		return params
	}
	if out := fn(params.Clone()); out != nil {
		return out
	}
	return params
}

func applyPost(fn PostProcessor, t *table.Table) *table.Table {
	if fn == nil {
		return t
	}
	if out := fn(t); out != nil {
		return out
	}
	return t
}
