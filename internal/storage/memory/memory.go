// Package memory is an in-process persistence gateway. When created with a
// file path the state is read from and written to a single JSON document.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"saldo/internal/core"
	"saldo/internal/storage"
	"saldo/internal/store"
)

type Repository struct {
	mu    sync.Mutex
	state store.State
	path  string
	saves int
}

// New returns an empty repository that never touches the filesystem.
func New() *Repository {
	return &Repository{}
}

// NewFromFile loads path if it exists. A missing file starts empty; the
// directory is created on the first save.
func NewFromFile(path string) (*Repository, error) {
	r := &Repository{path: path}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(b) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(b, &r.state); err != nil {
		return nil, fmt.Errorf("decode state file %s: %w", path, err)
	}
	return r, nil
}

func (r *Repository) LoadState(_ context.Context) (store.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone(), nil
}

func (r *Repository) SaveState(_ context.Context, state store.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := state.Clone()
	if r.path != "" {
		if err := writeFile(r.path, next); err != nil {
			return err
		}
	}
	r.state = next
	r.saves++
	return nil
}

func (r *Repository) LoadAccount(_ context.Context, id string) (core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.state.Accounts {
		if a.ID == id {
			return a.Clone(), nil
		}
	}
	return core.Account{}, fmt.Errorf("%w: %s", storage.ErrAccountNotFound, id)
}

func (r *Repository) Ping(_ context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

// Saves reports how many times SaveState succeeded.
func (r *Repository) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// writeFile replaces path atomically through a temp file in the same directory.
func writeFile(path string, state store.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".saldo-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
