package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"sqlreport/internal/config"
	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/table"
	"sqlreport/internal/models"
	"sqlreport/internal/service"
)

// ErrScheduleNotFound возвращается RunNow для неизвестного расписания.
var ErrScheduleNotFound = errors.New("schedule not found")

// ExportCreator ставит выгрузку отчёта в очередь.
type ExportCreator interface {
	CreateExport(ctx context.Context, req service.ExportRequest) (*models.Export, error)
}

// cronLogger адаптер для интеграции cron logger с logrus.
type cronLogger struct {
	logger *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			out[key] = keysAndValues[i+1]
		}
	}
	return out
}

// Entry описывает зарегистрированное расписание.
type Entry struct {
	Name   string    `json:"name"`
	Report string    `json:"report"`
	Spec   string    `json:"spec"`
	Next   time.Time `json:"next"`
}

// Scheduler запускает выгрузки отчётов по cron-расписанию.
type Scheduler struct {
	cron    *cron.Cron
	exports ExportCreator
	logger  *logrus.Logger
	timeout time.Duration

	mu        sync.Mutex
	schedules map[string]config.Schedule
	entries   map[string]cron.EntryID
}

// New создает планировщик. Расписания используют стандартный 5-польный
// формат cron и дескрипторы вида "@daily".
func New(exports ExportCreator, logger *logrus.Logger) *Scheduler {
	cl := cronLogger{logger: logger.WithField("component", "cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		exports:   exports,
		logger:    logger,
		timeout:   time.Minute,
		schedules: make(map[string]config.Schedule),
		entries:   make(map[string]cron.EntryID),
	}
}

// Register добавляет все расписания из конфигурации.
func (s *Scheduler) Register(schedules []config.Schedule) error {
	for _, sch := range schedules {
		if err := s.Add(sch); err != nil {
			return err
		}
	}
	return nil
}

// Add регистрирует одно расписание. Имена расписаний уникальны.
func (s *Scheduler) Add(sch config.Schedule) error {
	if _, err := table.ParseFormat(sch.Format); err != nil {
		return fmt.Errorf("schedule %s: %w", sch.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[sch.Name]; exists {
		return fmt.Errorf("schedule %s already registered", sch.Name)
	}

	id, err := s.cron.AddFunc(sch.Spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.trigger(ctx, sch); err != nil {
			s.logger.WithError(err).WithField("schedule", sch.Name).Error("Ошибка запуска выгрузки по расписанию")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: bad spec %q: %w", sch.Name, sch.Spec, err)
	}
	s.entries[sch.Name] = id
	s.schedules[sch.Name] = sch

	s.logger.WithFields(logrus.Fields{
		"schedule": sch.Name,
		"report":   sch.Report,
		"spec":     sch.Spec,
	}).Info("Расписание добавлено")
	return nil
}

// Remove удаляет расписание по имени.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[name]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	delete(s.schedules, name)
	return true
}

// RunNow ставит выгрузку расписания в очередь немедленно.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*models.Export, error) {
	s.mu.Lock()
	sch, ok := s.schedules[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, name)
	}
	return s.trigger(ctx, sch)
}

func (s *Scheduler) trigger(ctx context.Context, sch config.Schedule) (*models.Export, error) {
	runID := uuid.NewString()
	logger := s.logger.WithFields(logrus.Fields{
		"schedule": sch.Name,
		"report":   sch.Report,
		"run_id":   runID,
	})

	export, err := s.exports.CreateExport(ctx, service.ExportRequest{
		RunID:       runID,
		Report:      sch.Report,
		Format:      sch.Format,
		Params:      query.Params(sch.Params).Clone(),
		RequestedBy: "schedule:" + sch.Name,
	})
	if err != nil {
		return nil, err
	}
	logger.WithField("export_id", export.ID).Info("Выгрузка по расписанию поставлена в очередь")
	return export, nil
}

// Entries возвращает расписания и время следующего запуска.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		sch := s.schedules[name]
		out = append(out, Entry{
			Name:   name,
			Report: sch.Report,
			Spec:   sch.Spec,
			Next:   s.cron.Entry(id).Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start запускает планировщик.
func (s *Scheduler) Start() {
	s.logger.WithField("schedules", len(s.entries)).Info("Запуск планировщика")
	s.cron.Start()
}

// Stop останавливает планировщик и ждет завершения запущенных задач.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Планировщик остановлен")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
