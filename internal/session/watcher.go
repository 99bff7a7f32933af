package session

import (
	"context"
	"log/slog"

	"github.com/giannis84/gallery-sync/internal/logging"
)

// Watcher observes the session stream and forces a logout whenever the state
// transitions into corruption (claims logged-in without a valid identity).
// Logout emits a clean state, so the trigger fires exactly once per
// transition and cannot loop.
type Watcher struct {
	store  *Store
	logger *slog.Logger
}

// NewWatcher builds a Watcher over the given store.
func NewWatcher(store *Store, logger *slog.Logger) *Watcher {
	return &Watcher{store: store, logger: logger}
}

// Run blocks, consuming session state changes until ctx is cancelled.
// Callers typically run it in its own goroutine for the life of the process.
func (w *Watcher) Run(ctx context.Context) {
	states, cancel := w.store.Subscribe()
	defer cancel()

	wasCorrupted := false
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			corrupted := state.Corrupted()
			if corrupted && !wasCorrupted {
				logging.With(w.logger).Layer("session").Op("Watcher").
					Bool("logged_in", state.LoggedIn).
					Warn("corrupted session detected, forcing logout")
				if err := w.store.Logout(ctx); err != nil {
					logging.With(w.logger).Layer("session").Op("Watcher").Err(err).
						Error("forced logout finished with errors")
				}
			}
			wasCorrupted = corrupted
		}
	}
}
