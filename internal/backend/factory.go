package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/ports"
	"kakeibo/internal/storage"
	"kakeibo/internal/storage/memory"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the store and, when configured, connects the AMQP
// publisher. A broker that cannot be reached disables publishing instead of
// failing startup.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			res.AMQP = client
			res.Checks["amqp"] = func(context.Context) error { return client.Ping() }
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{
		Store:  repo,
		Checks: map[string]CheckFunc{"storage": repo.Ping},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	var (
		store *memory.Store
		err   error
	)
	if config.MemorySeedFile != "" {
		store, err = memory.NewFromFile(config.MemorySeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
	} else {
		store = memory.New()
	}
	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)
	return &Result{
		Store:  store,
		Checks: map[string]CheckFunc{"storage": func(context.Context) error { return nil }},
	}, nil
}

// Close releases the store and the AMQP client.
func (r *Result) Close() error {
	var errs []error
	if r.AMQP != nil {
		if err := r.AMQP.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.Store = (*storage.SQLiteRepository)(nil)
var _ ports.Store = (*memory.Store)(nil)
