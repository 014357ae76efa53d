package repository

import (
	"context"

	"sqlreport/internal/domain/report"
)

// DefinitionRepository loads report definitions by name.
type DefinitionRepository interface {
	GetByName(ctx context.Context, name string) (report.Definition, error)
}
