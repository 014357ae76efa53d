package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/models"
	"sqlreport/internal/storage"
	"sqlreport/internal/usecase"
)

// ReportService интерфейс для работы с отчётами
type ReportService interface {
	CreateDefinition(ctx context.Context, def report.Definition, user string) (*models.ReportDefinition, error)
	GetDefinition(ctx context.Context, name string) (*models.ReportDefinition, error)
	ListDefinitions(ctx context.Context, params ListParams) (*DefinitionList, error)
	UpdateDefinition(ctx context.Context, name string, def report.Definition, user string) (*models.ReportDefinition, error)
	DeleteDefinition(ctx context.Context, name string) error

	RunReport(ctx context.Context, name string, params query.Params, page usecase.Page) (*usecase.Result, error)
	CountSQL(ctx context.Context, name string) (string, error)

	CreateExport(ctx context.Context, req ExportRequest) (*models.Export, error)
	GetExport(ctx context.Context, id uint) (*models.Export, error)
	ListExports(ctx context.Context, name string, limit int) ([]models.Export, error)
	CancelExport(ctx context.Context, id uint) error
	GetExportFile(ctx context.Context, id uint) (io.ReadCloser, string, error)
	GetExportURL(ctx context.Context, id uint) (string, error)
}

// ExportRequest параметры запуска выгрузки
type ExportRequest struct {
	RunID       string
	Report      string
	Format      string
	Params      query.Params
	RequestedBy string
}

// ReportServiceImpl реализация сервиса отчётов
type ReportServiceImpl struct {
	definitions DefinitionRepository
	exports     ExportRepository
	runner      *usecase.ReportRunner
	fileStorage *ExportFileStorage
	processor   BackgroundProcessor
	logger      *logrus.Logger

	exportTimeout time.Duration
}

// NewReportService создает новый сервис отчётов
func NewReportService(
	definitions DefinitionRepository,
	exports ExportRepository,
	runner *usecase.ReportRunner,
	fileStorage *ExportFileStorage,
	processor BackgroundProcessor,
	logger *logrus.Logger,
	exportTimeout time.Duration,
) *ReportServiceImpl {
	return &ReportServiceImpl{
		definitions:   definitions,
		exports:       exports,
		runner:        runner,
		fileStorage:   fileStorage,
		processor:     processor,
		logger:        logger,
		exportTimeout: exportTimeout,
	}
}

// CreateDefinition проверяет и сохраняет новое определение отчёта
func (s *ReportServiceImpl) CreateDefinition(ctx context.Context, def report.Definition, user string) (*models.ReportDefinition, error) {
	logger := s.logger.WithFields(logrus.Fields{
		"report":     def.Name,
		"created_by": user,
	})

	if err := def.Validate(); err != nil {
		logger.WithError(err).Warn("Ошибка валидации отчета")
		return nil, err
	}

	row := models.NewReportDefinition(def)
	row.CreatedBy, row.UpdatedBy = user, user
	if err := s.definitions.Create(ctx, row); err != nil {
		logger.WithError(err).Error("Ошибка сохранения отчета в БД")
		return nil, fmt.Errorf("ошибка создания отчета: %w", err)
	}

	logger.WithField("report_id", row.ID).Info("Отчет создан")
	return row, nil
}

// GetDefinition получает определение по имени
func (s *ReportServiceImpl) GetDefinition(ctx context.Context, name string) (*models.ReportDefinition, error) {
	return s.definitions.GetByName(ctx, name)
}

// ListDefinitions получает список определений с пагинацией
func (s *ReportServiceImpl) ListDefinitions(ctx context.Context, params ListParams) (*DefinitionList, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	defs, total, err := s.definitions.List(ctx, params)
	if err != nil {
		s.logger.WithError(err).Error("Ошибка получения списка отчетов")
		return nil, fmt.Errorf("ошибка получения списка отчетов: %w", err)
	}

	return &DefinitionList{
		Definitions: defs,
		Total:       total,
		Page:        params.Page,
		PageSize:    params.PageSize,
		TotalPages:  int((total + int64(params.PageSize) - 1) / int64(params.PageSize)),
	}, nil
}

// UpdateDefinition заменяет определение отчёта; имя отчёта не меняется
func (s *ReportServiceImpl) UpdateDefinition(ctx context.Context, name string, def report.Definition, user string) (*models.ReportDefinition, error) {
	current, err := s.definitions.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	def.Name = name
	if err := def.Validate(); err != nil {
		return nil, err
	}

	row := models.NewReportDefinition(def)
	row.ID = current.ID
	row.CreatedAt = current.CreatedAt
	row.CreatedBy = current.CreatedBy
	row.UpdatedBy = user
	if err := s.definitions.Save(ctx, row); err != nil {
		s.logger.WithError(err).WithField("report", name).Error("Ошибка обновления отчета")
		return nil, fmt.Errorf("ошибка обновления отчета: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"report": name, "updated_by": user}).Info("Отчет обновлен")
	return row, nil
}

// DeleteDefinition удаляет определение отчёта; выгрузки остаются
func (s *ReportServiceImpl) DeleteDefinition(ctx context.Context, name string) error {
	if err := s.definitions.Delete(ctx, name); err != nil {
		return err
	}
	s.logger.WithField("report", name).Info("Отчет удален")
	return nil
}

// RunReport строит отчёт синхронно
func (s *ReportServiceImpl) RunReport(ctx context.Context, name string, params query.Params, page usecase.Page) (*usecase.Result, error) {
	return s.runner.RunByName(ctx, name, params, page)
}

// CountSQL возвращает шаблон подсчёта строк для первого запроса отчёта
func (s *ReportServiceImpl) CountSQL(ctx context.Context, name string) (string, error) {
	row, err := s.definitions.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	def := row.Definition()
	if len(def.Queries) == 0 {
		return "", fmt.Errorf("%w: no queries", report.ErrInvalidDefinition)
	}
	if def.Queries[0].CountSQL != "" {
		return def.Queries[0].CountSQL, nil
	}
	return query.BuildCount(def.Queries[0].SQL)
}

// CreateExport ставит выгрузку в очередь
func (s *ReportServiceImpl) CreateExport(ctx context.Context, req ExportRequest) (*models.Export, error) {
	format, err := table.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	if _, err := s.definitions.GetByName(ctx, req.Report); err != nil {
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	export := &models.Export{
		RunID:       runID,
		ReportName:  req.Report,
		Format:      string(format),
		Status:      models.StatusPending,
		Parameters:  models.JSON(req.Params),
		RequestedBy: req.RequestedBy,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"report": req.Report,
		"run_id": export.RunID,
		"format": format,
	})

	if err := s.exports.Create(ctx, export); err != nil {
		logger.WithError(err).Error("Ошибка сохранения выгрузки в БД")
		return nil, fmt.Errorf("ошибка создания выгрузки: %w", err)
	}

	task := Task{ID: TaskID(export.ID), ExportID: export.ID, Timeout: s.exportTimeout}
	if err := s.processor.SubmitTask(ctx, task); err != nil {
		logger.WithError(err).Error("Ошибка запуска фоновой выгрузки")
		if uerr := s.exports.UpdateStatus(ctx, export.ID, models.StatusFailed, map[string]interface{}{"error": err.Error()}); uerr != nil {
			logger.WithError(uerr).Error("Ошибка обновления статуса на failed")
		}
		return nil, fmt.Errorf("ошибка запуска выгрузки: %w", err)
	}

	logger.WithField("export_id", export.ID).Info("Выгрузка поставлена в очередь")
	return export, nil
}

// GetExport получает выгрузку по ID
func (s *ReportServiceImpl) GetExport(ctx context.Context, id uint) (*models.Export, error) {
	return s.exports.GetByID(ctx, id)
}

// ListExports возвращает последние выгрузки отчёта
func (s *ReportServiceImpl) ListExports(ctx context.Context, name string, limit int) ([]models.Export, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.exports.ListByReport(ctx, name, limit)
}

// CancelExport отменяет выгрузку в очереди или в работе
func (s *ReportServiceImpl) CancelExport(ctx context.Context, id uint) error {
	export, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !export.Status.CanTransitionTo(models.StatusCanceled) {
		return fmt.Errorf("%w: status %s", ErrExportFinished, export.Status)
	}
	if err := s.exports.UpdateStatus(ctx, id, models.StatusCanceled, nil); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return fmt.Errorf("%w: %v", ErrExportFinished, err)
		}
		return fmt.Errorf("ошибка обновления статуса выгрузки: %w", err)
	}
	if err := s.processor.CancelTask(TaskID(id)); err != nil {
		// задача еще в очереди, воркер пропустит ее по статусу
		s.logger.WithError(err).WithField("export_id", id).Debug("Задача не выполняется")
	}
	s.logger.WithField("export_id", id).Info("Выгрузка отменена")
	return nil
}

// GetExportFile возвращает файл готовой выгрузки и имя для скачивания
func (s *ReportServiceImpl) GetExportFile(ctx context.Context, id uint) (io.ReadCloser, string, error) {
	export, err := s.readyExport(ctx, id)
	if err != nil {
		return nil, "", err
	}

	reader, err := s.fileStorage.storage.Get(ctx, export.FileKey)
	if err != nil {
		s.logger.WithError(err).WithField("file_key", export.FileKey).Error("Ошибка получения файла из хранилища")
		return nil, "", fmt.Errorf("ошибка получения файла: %w", err)
	}

	generated := export.CreatedAt
	if export.GeneratedAt != nil {
		generated = *export.GeneratedAt
	}
	filename := fmt.Sprintf("%s_%s.%s", export.ReportName, generated.Format("20060102_150405"),
		table.Format(export.Format).Extension())
	return reader, filename, nil
}

// GetExportURL возвращает ссылку на скачивание готовой выгрузки
func (s *ReportServiceImpl) GetExportURL(ctx context.Context, id uint) (string, error) {
	export, err := s.readyExport(ctx, id)
	if err != nil {
		return "", err
	}
	return s.fileStorage.storage.GetURL(ctx, export.FileKey)
}

func (s *ReportServiceImpl) readyExport(ctx context.Context, id uint) (*models.Export, error) {
	export, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !export.IsCompleted() || !export.HasFile() {
		return nil, fmt.Errorf("%w: status %s", ErrExportNotReady, export.Status)
	}
	return export, nil
}

// IsNotFound сообщает, что err означает отсутствующий отчёт, выгрузку или файл.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound) || errors.Is(err, ErrExportNotFound) || errors.Is(err, storage.ErrNotFound)
}
