package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"sqlreport/internal/config"
	"sqlreport/internal/database"
	"sqlreport/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}
	logger := logging.New(cfg.Logging)

	dbCfg := database.FromConfig(cfg)
	dbCfg.Debug = true
	db, err := database.NewDatabase(dbCfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	// Run migrations
	if err := database.AutoMigrate(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	logger.WithField("driver", dbCfg.Driver).Info("Migrations completed successfully")
}
