package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sqlreport/internal/domain/report"
	"sqlreport/internal/models"
)

var (
	// ErrDefinitionNotFound возвращается для неизвестного отчёта.
	ErrDefinitionNotFound = errors.New("report definition not found")
	// ErrDefinitionExists возвращается, если имя уже занято.
	ErrDefinitionExists = errors.New("report definition already exists")
)

// DefinitionRepository интерфейс для работы с определениями отчётов в БД
type DefinitionRepository interface {
	Create(ctx context.Context, def *models.ReportDefinition) error
	GetByName(ctx context.Context, name string) (*models.ReportDefinition, error)
	List(ctx context.Context, params ListParams) ([]models.ReportDefinition, int64, error)
	Save(ctx context.Context, def *models.ReportDefinition) error
	Delete(ctx context.Context, name string) error
}

// ListParams параметры для получения списка определений
type ListParams struct {
	Page     int    `json:"page" query:"page"`
	PageSize int    `json:"page_size" query:"page_size"`
	Search   string `json:"search,omitempty" query:"search"`
}

// DefinitionList результат получения списка определений с пагинацией
type DefinitionList struct {
	Definitions []models.ReportDefinition `json:"definitions"`
	Total       int64                     `json:"total"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
}

// GormDefinitionRepository реализация репозитория определений для GORM
type GormDefinitionRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGormDefinitionRepository создает новый GORM репозиторий определений
func NewGormDefinitionRepository(db *gorm.DB, logger *logrus.Logger) *GormDefinitionRepository {
	return &GormDefinitionRepository{db: db, logger: logger}
}

// Create создает определение в БД
func (r *GormDefinitionRepository) Create(ctx context.Context, def *models.ReportDefinition) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReportDefinition{}).
		Where("name = ?", def.Name).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDefinitionExists, def.Name)
	}
	return r.db.WithContext(ctx).Create(def).Error
}

// GetByName получает определение по имени
func (r *GormDefinitionRepository) GetByName(ctx context.Context, name string) (*models.ReportDefinition, error) {
	var def models.ReportDefinition
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&def).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// List получает список определений с поиском и пагинацией
func (r *GormDefinitionRepository) List(ctx context.Context, params ListParams) ([]models.ReportDefinition, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ReportDefinition{})

	if params.Search != "" {
		pattern := "%" + strings.ToLower(params.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var defs []models.ReportDefinition
	err := q.Order("name").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&defs).Error
	return defs, total, err
}

// Save обновляет определение целиком
func (r *GormDefinitionRepository) Save(ctx context.Context, def *models.ReportDefinition) error {
	return r.db.WithContext(ctx).Save(def).Error
}

// Delete удаляет определение
func (r *GormDefinitionRepository) Delete(ctx context.Context, name string) error {
	res := r.db.WithContext(ctx).Where("name = ?", name).Delete(&models.ReportDefinition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return nil
}

// DefinitionSource отдает доменные определения отчётов раннеру.
type DefinitionSource struct {
	repo DefinitionRepository
}

// NewDefinitionSource оборачивает репозиторий для usecase.ReportRunner.
func NewDefinitionSource(repo DefinitionRepository) DefinitionSource {
	return DefinitionSource{repo: repo}
}

// GetByName реализует repository.DefinitionRepository.
func (s DefinitionSource) GetByName(ctx context.Context, name string) (report.Definition, error) {
	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return report.Definition{}, err
	}
	return row.Definition(), nil
}
