package backend

import (
	"context"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/services"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		gateway Gateway
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		gateway, err = f.createSQLiteGateway(config)
	case MemoryBackend:
		gateway, err = f.createMemoryGateway(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := gateway.Ping(ctx); err != nil {
		gateway.Close()
		return nil, fmt.Errorf("backend not reachable: %w", err)
	}

	// A nil *amqp.Client must not end up inside the interface.
	var publisher services.SyncPublisher
	if client := f.connectAMQP(config); client != nil {
		publisher = client
	}

	svc := services.NewPersistenceService(gateway, publisher, config.Versions)
	return &BackendResult{
		Gateway:   gateway,
		Persister: svc,
		Cleanup:   svc.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteGateway(config Config) (Gateway, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMemoryGateway(config Config) (Gateway, error) {
	if config.MemoryFile == "" {
		f.logger.Info("Initialized memory backend", "persistent", false)
		return memory.New(), nil
	}
	repo, err := memory.NewFromFile(config.MemoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "persistent", true, "file", config.MemoryFile)
	return repo, nil
}

// connectAMQP returns nil when AMQP is not configured or unreachable; the
// backend then works without sync publishing.
func (f *DefaultFactory) connectAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
