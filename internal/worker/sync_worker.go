package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saldo/internal/amqp"
	"saldo/internal/core"
	"saldo/internal/sheets"
	"saldo/internal/storage"
	"saldo/internal/store"
)

// AccountSource is the read side of a persistence gateway.
type AccountSource interface {
	LoadState(ctx context.Context) (store.State, error)
	LoadAccount(ctx context.Context, id string) (core.Account, error)
}

// SyncWorker mirrors accounts from storage into a spreadsheet.
type SyncWorker struct {
	source AccountSource
	mirror sheets.AccountMirror
}

func NewSyncWorker(source AccountSource, mirror sheets.AccountMirror) *SyncWorker {
	return &SyncWorker{
		source: source,
		mirror: mirror,
	}
}

// HandleSyncMessage mirrors the account named in msg. An account that no
// longer exists has its mirror removed when the adapter supports it.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.AccountSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"account_id", msg.AccountID,
		"version", msg.Version)

	acc, err := w.source.LoadAccount(ctx, msg.AccountID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return w.removeAccount(ctx, msg.AccountID)
	}
	if err != nil {
		return fmt.Errorf("load account from storage: %w", err)
	}

	if err := w.syncAccount(ctx, acc); err != nil {
		return fmt.Errorf("sync account to sheets: %w", err)
	}
	return nil
}

// StartupSyncCheck mirrors every stored account once, so changes made
// while the worker was down are not lost.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	state, err := w.source.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state for startup check: %w", err)
	}

	successCount := 0
	errorCount := 0
	for _, acc := range state.Accounts {
		if err := w.syncAccount(ctx, acc); err != nil {
			slog.ErrorContext(ctx, "Failed to sync account during startup",
				"account_id", acc.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(state.Accounts),
		"synced", successCount,
		"errors", errorCount)
	return nil
}

func (w *SyncWorker) syncAccount(ctx context.Context, acc core.Account) error {
	ref, err := w.mirror.MirrorAccount(ctx, acc)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Successfully synced account",
		"account_id", acc.ID,
		"sheets_ref", ref,
		"transactions", len(acc.Transactions))
	return nil
}

func (w *SyncWorker) removeAccount(ctx context.Context, accountID string) error {
	remover, ok := w.mirror.(sheets.AccountRemover)
	if !ok {
		slog.WarnContext(ctx, "Account gone and mirror cannot remove it, skipping",
			"account_id", accountID)
		return nil
	}
	if err := remover.RemoveAccount(ctx, accountID); err != nil {
		return fmt.Errorf("remove account mirror: %w", err)
	}
	slog.InfoContext(ctx, "Removed mirror of deleted account", "account_id", accountID)
	return nil
}
