package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"saldo/internal/core"
	"saldo/internal/store"
)

type (
	// StateSaver is the write side of a persistence gateway.
	StateSaver interface {
		SaveState(ctx context.Context, state store.State) error
		Close() error
	}

	// SyncPublisher announces changed accounts to downstream consumers.
	SyncPublisher interface {
		PublishAccountSync(ctx context.Context, accountID string, version uint64) error
		Close() error
	}

	// VersionSource supplies the version stamped on sync messages.
	VersionSource interface {
		Version() uint64
	}
)

// PersistenceService writes store snapshots through the gateway and then
// tells the sync worker which accounts changed. Publishing is best effort:
// once the local write succeeded a publish failure is only logged.
type PersistenceService struct {
	gateway   StateSaver
	publisher SyncPublisher
	versions  VersionSource

	mu      sync.Mutex
	digests map[string][32]byte
	saves   atomic.Uint64
}

// NewPersistenceService wires the gateway and an optional publisher. A nil
// versions source stamps messages with the service's own save counter.
func NewPersistenceService(gateway StateSaver, publisher SyncPublisher, versions VersionSource) *PersistenceService {
	return &PersistenceService{
		gateway:   gateway,
		publisher: publisher,
		versions:  versions,
		digests:   make(map[string][32]byte),
	}
}

// Persist implements store.Persister.
func (s *PersistenceService) Persist(ctx context.Context, state store.State) error {
	if s.gateway == nil {
		return errors.New("persist state: no gateway configured")
	}
	if err := s.gateway.SaveState(ctx, state); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	saves := s.saves.Add(1)

	changed := s.changedAccounts(state.Accounts)
	if len(changed) == 0 {
		return nil
	}
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync messages",
			"changed_accounts", len(changed))
		return nil
	}

	version := saves
	if s.versions != nil {
		version = s.versions.Version()
	}
	for _, id := range changed {
		if err := s.publisher.PublishAccountSync(ctx, id, version); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"account_id", id,
				"version", version,
				"error", err)
		}
	}
	return nil
}

// changedAccounts returns ids whose content differs from the last persisted
// snapshot, followed by ids that were persisted before and are gone now so
// downstream mirrors can drop them.
func (s *PersistenceService) changedAccounts(accounts []core.Account) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(accounts))
	var changed []string
	for _, a := range accounts {
		seen[a.ID] = struct{}{}
		b, err := json.Marshal(a)
		if err != nil {
			changed = append(changed, a.ID)
			continue
		}
		sum := sha256.Sum256(b)
		if prev, ok := s.digests[a.ID]; ok && prev == sum {
			continue
		}
		s.digests[a.ID] = sum
		changed = append(changed, a.ID)
	}
	var removed []string
	for id := range s.digests {
		if _, ok := seen[id]; !ok {
			delete(s.digests, id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return append(changed, removed...)
}

// Close closes the gateway and the publisher.
func (s *PersistenceService) Close() error {
	var errs []error

	if s.gateway != nil {
		if err := s.gateway.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close persistence service: %w", errors.Join(errs...))
	}
	return nil
}
