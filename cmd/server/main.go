package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"sqlreport/internal/config"
	"sqlreport/internal/database"
	sqlpool "sqlreport/internal/infrastructure/sql"
	"sqlreport/internal/logging"
	"sqlreport/internal/scheduler"
	"sqlreport/internal/server"
	"sqlreport/internal/service"
	"sqlreport/internal/storage"
	"sqlreport/internal/usecase"
)

func main() {
	app := fx.New(
		// Поставщики зависимостей
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDatabase,
			providePools,
			storage.NewStorageFromConfig,
			provideRepositories,
			provideRunner,
			provideProcessor,
			provideReportService,
			provideScheduler,
			provideServer,
		),

		// Хуки жизненного цикла
		fx.Invoke(registerLifecycleHooks),
	)

	// Запуск приложения с остановкой
	runWithGracefulShutdown(app)
}

// provideConfig загружает и предоставляет конфигурацию приложения
func provideConfig() (config.Config, error) {
	return config.Load()
}

// provideLogger создает логгер на основе конфигурации
func provideLogger(cfg config.Config) *logrus.Logger {
	logger := logging.New(cfg.Logging)
	logger.WithField("config", cfg.String()).Info("Запуск сервиса отчетов")
	return logger
}

// provideDatabase открывает БД сервиса и применяет миграции
func provideDatabase(cfg config.Config, logger *logrus.Logger, lc fx.Lifecycle) (*gorm.DB, error) {
	db, err := database.NewDatabase(database.FromConfig(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, logger); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

// providePools открывает пулы отчётных БД
func providePools(cfg config.Config, logger *logrus.Logger, lc fx.Lifecycle) (*sqlpool.Pools, error) {
	pools, err := sqlpool.OpenPools(cfg.Pools, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pools.Close()
		},
	})
	return pools, nil
}

type repositories struct {
	fx.Out

	Definitions service.DefinitionRepository
	Exports     service.ExportRepository
}

// provideRepositories создает GORM репозитории отчётов и выгрузок
func provideRepositories(db *gorm.DB, logger *logrus.Logger) repositories {
	return repositories{
		Definitions: service.NewGormDefinitionRepository(db, logger),
		Exports:     service.NewGormExportRepository(db),
	}
}

func provideRunner(cfg config.Config, defs service.DefinitionRepository, pools *sqlpool.Pools, logger *logrus.Logger) *usecase.ReportRunner {
	runner := usecase.NewReportRunner(pools, service.NewDefinitionSource(defs), logger)
	runner.DefaultPageSize = cfg.Report.PageSize
	runner.MaxPageSize = cfg.Report.MaxPageSize
	return runner
}

// provideProcessor создает пул воркеров выгрузок
func provideProcessor(
	cfg config.Config,
	exports service.ExportRepository,
	runner *usecase.ReportRunner,
	store storage.Storage,
	logger *logrus.Logger,
	lc fx.Lifecycle,
) (*service.WorkerProcessor, *service.ExportFileStorage) {
	files := service.NewExportFileStorage(store)
	processor := service.NewWorkerProcessor(exports, service.NewTableExportGenerator(runner, logger), files, logger, cfg.Report.ExportQueue)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			processor.Start(cfg.Report.ExportWorkers)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return processor.Stop(ctx)
		},
	})
	return processor, files
}

func provideReportService(
	cfg config.Config,
	defs service.DefinitionRepository,
	exports service.ExportRepository,
	runner *usecase.ReportRunner,
	files *service.ExportFileStorage,
	processor *service.WorkerProcessor,
	logger *logrus.Logger,
) service.ReportService {
	return service.NewReportService(defs, exports, runner, files, processor, logger, cfg.Report.Timeout)
}

// provideScheduler регистрирует выгрузки по расписанию
func provideScheduler(cfg config.Config, svc service.ReportService, logger *logrus.Logger, lc fx.Lifecycle) (*scheduler.Scheduler, error) {
	s := scheduler.New(svc, logger)
	if err := s.Register(cfg.Schedules); err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
	return s, nil
}

func provideServer(cfg config.Config, svc service.ReportService, s *scheduler.Scheduler, logger *logrus.Logger) server.HTTPServer {
	return server.NewServer(cfg, svc, s, logger)
}

// registerLifecycleHooks настраивает хуки жизненного цикла приложения
func registerLifecycleHooks(
	srv server.HTTPServer,
	cfg config.Config,
	logger *logrus.Logger,
	lc fx.Lifecycle,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Запуск HTTP сервера")
			go func() {
				if err := srv.Start(cfg.Server.Address); err != nil {
					logger.WithError(err).Error("Не удалось запустить HTTP сервер")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Завершение работы HTTP сервера")
			return srv.Shutdown(ctx)
		},
	})
}

// runWithGracefulShutdown обрабатывает жизненный цикл приложения с обработкой сигналов
func runWithGracefulShutdown(app *fx.App) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Настраиваем обработку сигналов
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
	defer startCancel()

	if err := app.Start(startCtx); err != nil {
		logrus.WithError(err).Fatal("Не удалось запустить приложение")
	}

	// Ожидаем сигнал завершения
	<-quit
	logrus.Info("Получен сигнал завершения работы")

	// Грациозное завершение с таймаутом
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		logrus.WithError(err).Error("Ошибка при завершении работы")
		os.Exit(1)
	}

	logrus.Info("Сервис отчетов остановлен корректно")
}
