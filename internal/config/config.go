package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	sqlpool "sqlreport/internal/infrastructure/sql"
)

// Server содержит настройки HTTP-сервера.
type Server struct {
	Address string `mapstructure:"address"`
	Debug   bool   `mapstructure:"debug"`
}

// DB содержит параметры подключения к БД с определениями отчётов.
type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Storage описывает настройки хранилища выгрузок.
type Storage struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"basepath"`
	S3       S3     `mapstructure:"s3"`
}

// S3 содержит настройки для S3-совместимого хранилища.
type S3 struct {
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	Endpoint          string        `mapstructure:"endpoint"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
}

// Logging содержит настройки логирования.
type Logging struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Report содержит лимиты выполнения отчётов.
type Report struct {
	PageSize      int           `mapstructure:"page_size" validate:"gt=0"`
	MaxPageSize   int           `mapstructure:"max_page_size" validate:"gtefield=PageSize"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ExportWorkers int           `mapstructure:"export_workers" validate:"gt=0"`
	ExportQueue   int           `mapstructure:"export_queue" validate:"gt=0"`
}

// Schedule запускает выгрузку отчёта по cron-выражению.
type Schedule struct {
	Name   string         `mapstructure:"name" validate:"required"`
	Report string         `mapstructure:"report" validate:"required"`
	Spec   string         `mapstructure:"spec" validate:"required"`
	Format string         `mapstructure:"format" validate:"omitempty,oneof=csv csv.gz csv.xz xlsx"`
	Params map[string]any `mapstructure:"params"`
}

// Config объединяет все разделы конфигурации.
type Config struct {
	Server    Server                        `mapstructure:"server"`
	DB        DB                            `mapstructure:"database"`
	Pools     map[string]sqlpool.PoolConfig `mapstructure:"pools" validate:"dive"`
	Storage   Storage                       `mapstructure:"storage"`
	Logging   Logging                       `mapstructure:"logging"`
	Report    Report                        `mapstructure:"report"`
	Schedules []Schedule                    `mapstructure:"schedules" validate:"dive"`
}

// Load читает .env, файл конфигурации и окружение.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile работает как Load, но читает указанный файл вместо поиска config.yaml.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sqlreport")
	}

	// Настройка для environment variables
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		// Если файл конфигурации не найден, продолжаем с environment variables и defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debug", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "sqlreport.db")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.basepath", "./exports")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "sqlreport-exports")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.presign_expiration", time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("report.page_size", 50)
	v.SetDefault("report.max_page_size", 1000)
	v.SetDefault("report.timeout", 5*time.Minute)
	v.SetDefault("report.export_workers", 2)
	v.SetDefault("report.export_queue", 100)
}

// validateConfig проверяет корректность конфигурации
func validateConfig(cfg Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database driver must be 'postgres' or 'sqlite', got: %s", cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}

	if cfg.Storage.Type != "local" && cfg.Storage.Type != "s3" {
		return fmt.Errorf("storage type must be 'local' or 's3', got: %s", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "local" && cfg.Storage.BasePath == "" {
		return fmt.Errorf("storage basepath cannot be empty for local storage")
	}
	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("S3 region cannot be empty")
		}
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}
	isValidLevel := false
	for _, level := range validLogLevels {
		if strings.ToLower(cfg.Logging.Level) == level {
			isValidLevel = true
			break
		}
	}
	if !isValidLevel {
		return fmt.Errorf("invalid logging level: %s. Valid levels: %v", cfg.Logging.Level, validLogLevels)
	}

	// Пулы, расписания и лимиты отчётов проверяются по тегам validate
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	names := make(map[string]bool, len(cfg.Schedules))
	for _, s := range cfg.Schedules {
		if names[s.Name] {
			return fmt.Errorf("duplicate schedule name: %s", s.Name)
		}
		names[s.Name] = true
	}
	return nil
}

// IsDevelopment возвращает true, если приложение запущено в режиме разработки
func (c Config) IsDevelopment() bool {
	return c.Server.Debug
}

// String возвращает строковое представление конфигурации (без чувствительных данных)
func (c Config) String() string {
	pools := make([]string, 0, len(c.Pools))
	for name, p := range c.Pools {
		pools = append(pools, name+":"+p.Driver)
	}
	return fmt.Sprintf("Config{Server: %+v, DB: {Driver: %s, DSN: [HIDDEN]}, Pools: %v, Storage: {Type: %s, BasePath: %s, Bucket: %s}, Logging: %+v, Schedules: %d}",
		c.Server, c.DB.Driver, pools, c.Storage.Type, c.Storage.BasePath, c.Storage.S3.Bucket, c.Logging, len(c.Schedules))
}
