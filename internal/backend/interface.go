package backend

import (
	"context"

	"saldo/internal/core"
	"saldo/internal/services"
	"saldo/internal/store"
)

// Gateway is the persistence surface shared by every backend.
type Gateway interface {
	LoadState(ctx context.Context) (store.State, error)
	SaveState(ctx context.Context, state store.State) error
	LoadAccount(ctx context.Context, id string) (core.Account, error)
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the gateway, the persister the flusher writes
// through, and the cleanup that releases both.
type BackendResult struct {
	Gateway   Gateway
	Persister *services.PersistenceService
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; empty keeps state in process only.
	MemoryFile string

	// Optional sync publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Versions stamps sync messages, normally the store.
	Versions services.VersionSource
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
