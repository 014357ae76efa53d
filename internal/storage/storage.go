package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"sqlreport/internal/config"
)

const (
	// Типы хранилищ
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"

	// Настройки retry
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

var (
	// ErrNotFound возвращается, если по ключу нет объекта.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidKey возвращается для пустых или небезопасных ключей.
	ErrInvalidKey = errors.New("invalid file key")
)

// Storage интерфейс для работы с хранилищем выгрузок
type Storage interface {
	Save(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL возвращает ссылку на скачивание файла
	GetURL(ctx context.Context, key string) (string, error)

	JoinPath(elem ...string) string
	ValidateKey(key string) error
}

// NewStorageFromConfig создает хранилище из конфигурации и оборачивает его в middleware.
func NewStorageFromConfig(cfg config.Config, logger *logrus.Logger) (Storage, error) {
	var (
		storage Storage
		err     error
	)
	switch cfg.Storage.Type {
	case StorageTypeS3:
		storage, err = NewS3Storage(cfg.Storage.S3, logger)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания S3 хранилища: %w", err)
		}
	case StorageTypeLocal:
		storage, err = NewLocalStorage(cfg.Storage.BasePath, logger)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания локального хранилища: %w", err)
		}
	default:
		return nil, fmt.Errorf("неподдерживаемый тип хранилища: %s", cfg.Storage.Type)
	}
	return Wrap(storage, logger), nil
}

// Wrap оборачивает хранилище логированием, повторами и проверкой ключей.
func Wrap(storage Storage, logger *logrus.Logger) Storage {
	if logger != nil {
		storage = NewLoggingMiddleware(storage, logger)
	}
	storage = NewRetryMiddleware(storage, DefaultMaxRetries, DefaultRetryDelay, logger)
	return NewValidationMiddleware(storage)
}
