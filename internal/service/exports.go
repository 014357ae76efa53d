package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/models"
	"sqlreport/internal/storage"
	"sqlreport/internal/usecase"
)

var (
	// ErrExportNotFound возвращается для неизвестного id выгрузки.
	ErrExportNotFound = errors.New("export not found")
	// ErrExportNotReady возвращается, если файл выгрузки запрошен до готовности.
	ErrExportNotReady = errors.New("export is not ready")
	// ErrQueueFull возвращается, когда очередь выгрузок заполнена.
	ErrQueueFull = errors.New("export queue is full")
	// ErrExportFinished возвращается при отмене завершенной выгрузки.
	ErrExportFinished = errors.New("export is already finished")
	// ErrStatusConflict возвращается, если текущий статус не допускает переход.
	ErrStatusConflict = errors.New("export status conflict")
)

// ExportRepository интерфейс для работы с выгрузками в БД
type ExportRepository interface {
	Create(ctx context.Context, export *models.Export) error
	GetByID(ctx context.Context, id uint) (*models.Export, error)
	ListByReport(ctx context.Context, report string, limit int) ([]models.Export, error)
	UpdateStatus(ctx context.Context, id uint, status models.ExportStatus, updates map[string]interface{}) error
}

// GormExportRepository реализация репозитория выгрузок для GORM
type GormExportRepository struct {
	db *gorm.DB
}

// NewGormExportRepository создает новый GORM репозиторий выгрузок
func NewGormExportRepository(db *gorm.DB) *GormExportRepository {
	return &GormExportRepository{db: db}
}

// Create создает запись о выгрузке
func (r *GormExportRepository) Create(ctx context.Context, export *models.Export) error {
	return r.db.WithContext(ctx).Create(export).Error
}

// GetByID получает выгрузку по ID
func (r *GormExportRepository) GetByID(ctx context.Context, id uint) (*models.Export, error) {
	var export models.Export
	err := r.db.WithContext(ctx).First(&export, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrExportNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &export, nil
}

// ListByReport возвращает последние выгрузки отчёта
func (r *GormExportRepository) ListByReport(ctx context.Context, report string, limit int) ([]models.Export, error) {
	var exports []models.Export
	err := r.db.WithContext(ctx).
		Where("report_name = ?", report).
		Order("id DESC").
		Limit(limit).
		Find(&exports).Error
	return exports, err
}

// UpdateStatus обновляет статус выгрузки вместе с дополнительными полями.
// Запись меняется, только если текущий статус допускает переход, иначе
// возвращается ErrStatusConflict.
func (r *GormExportRepository) UpdateStatus(ctx context.Context, id uint, status models.ExportStatus, updates map[string]interface{}) error {
	values := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		values[k] = v
	}
	if status == models.StatusCompleted {
		now := time.Now().UTC()
		values["generated_at"] = &now
	}

	from := make([]string, 0, 2)
	for _, st := range models.SourcesOf(status) {
		from = append(from, string(st))
	}
	result := r.db.WithContext(ctx).Model(&models.Export{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: export %d cannot become %s", ErrStatusConflict, id, status)
	}
	return nil
}

// ExportGenerator строит файл выгрузки
type ExportGenerator interface {
	Generate(ctx context.Context, export *models.Export) (data []byte, rows int, err error)
}

// TableExportGenerator собирает отчёт и кодирует его таблицу.
type TableExportGenerator struct {
	runner *usecase.ReportRunner
	logger *logrus.Logger
}

// NewTableExportGenerator создает генератор выгрузок
func NewTableExportGenerator(runner *usecase.ReportRunner, logger *logrus.Logger) *TableExportGenerator {
	return &TableExportGenerator{runner: runner, logger: logger}
}

// Generate собирает отчёт выгрузки. Для отчётов с пагинацией выгружается
// первая страница из max_page_size строк.
func (g *TableExportGenerator) Generate(ctx context.Context, export *models.Export) ([]byte, int, error) {
	format, err := table.ParseFormat(export.Format)
	if err != nil {
		return nil, 0, err
	}
	page := usecase.Page{Number: 1, Size: g.runner.MaxPageSize}
	res, err := g.runner.RunByName(ctx, export.ReportName, query.Params(export.Parameters), page)
	if err != nil {
		return nil, 0, err
	}
	data, err := res.Table.Bytes(format, true)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", format, err)
	}

	g.logger.WithFields(logrus.Fields{
		"report": export.ReportName,
		"format": format,
		"rows":   res.Table.Len(),
		"bytes":  len(data),
	}).Info("Выгрузка сгенерирована")
	return data, res.Table.Len(), nil
}

// ExportFileStorage хранит файлы выгрузок под ключами exports/<report>/<yyyymmdd>/<run id>.<ext>
type ExportFileStorage struct {
	storage storage.Storage
}

// NewExportFileStorage создает хранилище файлов выгрузок
func NewExportFileStorage(storage storage.Storage) *ExportFileStorage {
	return &ExportFileStorage{storage: storage}
}

// GenerateKey генерирует ключ для файла выгрузки
func (s *ExportFileStorage) GenerateKey(export *models.Export) string {
	day := export.CreatedAt
	if day.IsZero() {
		day = time.Now()
	}
	return s.storage.JoinPath("exports", export.ReportName, day.UTC().Format("20060102"),
		export.RunID+"."+table.Format(export.Format).Extension())
}

// Task представляет фоновую задачу выгрузки
type Task struct {
	ID       string
	ExportID uint
	Timeout  time.Duration
}

// TaskID возвращает id задачи процессора для выгрузки.
func TaskID(exportID uint) string {
	return fmt.Sprintf("export_%d", exportID)
}

// BackgroundProcessor интерфейс для фоновой обработки
type BackgroundProcessor interface {
	SubmitTask(ctx context.Context, task Task) error
	CancelTask(taskID string) error
}

// WorkerProcessor выполняет выгрузки пулом воркеров
type WorkerProcessor struct {
	repository  ExportRepository
	generator   ExportGenerator
	fileStorage *ExportFileStorage
	logger      *logrus.Logger

	tasks         chan Task
	cancellations sync.Map // map[string]context.CancelFunc
	wg            sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewWorkerProcessor создает процессор с очередью указанного размера
func NewWorkerProcessor(
	repository ExportRepository,
	generator ExportGenerator,
	fileStorage *ExportFileStorage,
	logger *logrus.Logger,
	queueSize int,
) *WorkerProcessor {
	if queueSize <= 0 {
		queueSize = 100
	}
	return &WorkerProcessor{
		repository:  repository,
		generator:   generator,
		fileStorage: fileStorage,
		logger:      logger,
		tasks:       make(chan Task, queueSize),
	}
}

// Start запускает воркеры
func (p *WorkerProcessor) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				p.processTask(task)
			}
		}()
	}
}

// Stop закрывает очередь и ждет завершения воркеров
func (p *WorkerProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancellations.Range(func(_, cancel any) bool {
			cancel.(context.CancelFunc)()
			return true
		})
		return ctx.Err()
	}
}

// SubmitTask отправляет задачу в очередь
func (p *WorkerProcessor) SubmitTask(ctx context.Context, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("процессор остановлен")
	}

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// CancelTask отменяет выполняющуюся задачу
func (p *WorkerProcessor) CancelTask(taskID string) error {
	if cancel, exists := p.cancellations.Load(taskID); exists {
		cancel.(context.CancelFunc)()
		return nil
	}
	return fmt.Errorf("задача %s не найдена", taskID)
}

func (p *WorkerProcessor) processTask(task Task) {
	ctx := context.Background()
	var cancel context.CancelFunc
	if task.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	p.cancellations.Store(task.ID, cancel)
	defer p.cancellations.Delete(task.ID)

	p.processExport(ctx, task.ExportID)
}

// processExport обрабатывает генерацию выгрузки
func (p *WorkerProcessor) processExport(ctx context.Context, exportID uint) {
	logger := p.logger.WithField("export_id", exportID)

	export, err := p.repository.GetByID(ctx, exportID)
	if err != nil {
		logger.WithError(err).Error("Ошибка получения выгрузки")
		return
	}
	if !export.Status.CanTransitionTo(models.StatusProcessing) {
		logger.WithField("status", export.Status).Info("Выгрузка пропущена")
		return
	}
	if err := p.repository.UpdateStatus(ctx, exportID, models.StatusProcessing, nil); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			logger.WithError(err).Info("Выгрузка пропущена")
			return
		}
		logger.WithError(err).Error("Ошибка обновления статуса на processing")
		return
	}

	data, rows, err := p.generator.Generate(ctx, export)
	if err != nil {
		p.fail(logger, exportID, err)
		return
	}

	fileKey := p.fileStorage.GenerateKey(export)
	if err := p.fileStorage.storage.Save(ctx, fileKey, bytes.NewReader(data)); err != nil {
		p.fail(logger, exportID, fmt.Errorf("save %s: %w", fileKey, err))
		return
	}

	if err := p.repository.UpdateStatus(ctx, exportID, models.StatusCompleted, map[string]interface{}{
		"file_key":  fileKey,
		"row_count": rows,
	}); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// отменили во время генерации, файл больше не нужен
			logger.WithError(err).Info("Выгрузка отменена")
			if err := p.fileStorage.storage.Delete(context.Background(), fileKey); err != nil {
				logger.WithError(err).WithField("file_key", fileKey).Warn("Ошибка удаления файла выгрузки")
			}
			return
		}
		logger.WithError(err).Error("Ошибка обновления статуса на completed")
		return
	}

	logger.WithFields(logrus.Fields{
		"report":   export.ReportName,
		"file_key": fileKey,
		"rows":     rows,
	}).Info("Выгрузка сохранена")
}

// fail помечает выгрузку ошибочной; отмененные выгрузки не трогает
func (p *WorkerProcessor) fail(logger *logrus.Entry, exportID uint, cause error) {
	ctx := context.Background()
	if errors.Is(cause, context.Canceled) {
		logger.Info("Выгрузка отменена")
		return
	}
	logger.WithError(cause).Error("Ошибка генерации выгрузки")

	msg := cause.Error()
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	err := p.repository.UpdateStatus(ctx, exportID, models.StatusFailed, map[string]interface{}{"error": msg})
	switch {
	case errors.Is(err, ErrStatusConflict):
		logger.WithError(err).Info("Статус выгрузки уже изменен")
	case err != nil:
		logger.WithError(err).Error("Ошибка обновления статуса на failed")
	}
}
