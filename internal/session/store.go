// Package session holds the authenticated identity of the app user: the
// persisted credentials (the on-disk analog of the mobile app's preferences
// store) and the observable in-memory SessionState derived from them.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/giannis84/gallery-sync/internal/cache"
	"github.com/giannis84/gallery-sync/internal/logging"
	"github.com/giannis84/gallery-sync/internal/models"
	"github.com/giannis84/gallery-sync/internal/observe"
)

// Store is the single owner of session state. It persists credentials to a
// JSON file, exposes the derived SessionState as an observable value, and
// cascades cache cleanup on logout.
type Store struct {
	path   string
	repo   cache.FavouritesRepository
	logger *slog.Logger

	mu    sync.Mutex
	creds models.Credentials
	state *observe.Value[models.SessionState]
}

// NewStore reads any persisted credentials from path and builds the initial
// session state from them. A missing file means a logged-out session, not an
// error; an unreadable file is treated the same after a warning, so a corrupt
// credentials file can never brick startup.
func NewStore(path string, repo cache.FavouritesRepository, logger *slog.Logger) *Store {
	s := &Store{
		path:   path,
		repo:   repo,
		logger: logger,
	}

	creds, err := loadCredentials(path)
	if err != nil {
		logging.With(logger).Layer("session").Op("NewStore").Err(err).
			Warn("discarding unreadable credentials file")
		creds = models.Credentials{}
	}
	s.creds = creds
	s.state = observe.NewValue(stateFromCredentials(creds))
	return s
}

// stateFromCredentials derives the whole-state snapshot. A persisted user ID
// that fails validation yields a logged-in-but-anonymous state, which the
// corruption watcher resolves by forcing logout.
func stateFromCredentials(creds models.Credentials) models.SessionState {
	loggedIn := creds.Token != "" || creds.UserID != 0
	uid, err := models.AuthenticatedUser(creds.UserID)
	if err != nil {
		uid = models.Anonymous
	}
	return models.SessionState{UserID: uid, Username: creds.Username, LoggedIn: loggedIn}
}

// CurrentUserID returns the identity of the current user, Anonymous when
// logged out or when the persisted ID is unusable.
func (s *Store) CurrentUserID() models.UserID {
	return s.state.Get().UserID
}

// Token returns the stored auth token, or "" when logged out.
// It satisfies the gateway's TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Token
}

// State returns the current session state snapshot.
func (s *Store) State() models.SessionState {
	return s.state.Get()
}

// Subscribe returns a channel that carries the current session state
// immediately and every replacement after it, plus a cancel function.
func (s *Store) Subscribe() (<-chan models.SessionState, func()) {
	return s.state.Subscribe()
}

// IsValid reports whether the session may drive authenticated operations:
// logged in, an authenticated user ID, and a usable (present, unexpired)
// auth token. Anything less is not a valid session.
func (s *Store) IsValid() bool {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()

	state := s.state.Get()
	if !state.LoggedIn || !state.UserID.IsAuthenticated() {
		return false
	}
	return tokenUsable(creds.Token)
}

// SaveLogin persists backend-issued credentials and flips the session state.
// Credentials without an authenticated user ID are rejected before anything
// is written.
func (s *Store) SaveLogin(creds models.Credentials) error {
	if _, err := models.AuthenticatedUser(creds.UserID); err != nil {
		return fmt.Errorf("refusing to persist credentials: %w", err)
	}
	if creds.Token == "" {
		return errors.New("refusing to persist credentials without an auth token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := saveCredentials(s.path, creds); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}
	s.creds = creds
	s.state.Set(stateFromCredentials(creds))

	logging.With(s.logger).Layer("session").Op("SaveLogin").User(creds.UserID).
		Str("username", creds.Username).Info("session established")
	return nil
}

// Logout clears the session. The cached favourites of the departing user are
// removed first; if that fails the whole cache is dropped instead, so a later
// login can never observe another user's rows. Credentials are cleared
// regardless of cache errors — logout must not wedge on storage problems.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid := stateFromCredentials(s.creds).UserID
	if uid.IsAuthenticated() {
		if err := s.repo.ClearForUser(ctx, uid.Int64()); err != nil {
			logging.With(s.logger).Layer("session").Op("Logout").User(uid.Int64()).Err(err).
				Error("per-user cache clear failed, dropping entire cache")
			if err := s.repo.ClearAll(ctx); err != nil {
				logging.With(s.logger).Layer("session").Op("Logout").Err(err).
					Error("full cache clear failed, continuing logout anyway")
			}
		}
	}

	var clearErr error
	if err := clearCredentials(s.path); err != nil {
		clearErr = fmt.Errorf("clearing credentials file: %w", err)
		logging.With(s.logger).Layer("session").Op("Logout").Err(err).
			Error("credentials file could not be removed")
	}

	s.creds = models.Credentials{}
	s.state.Set(models.SessionState{UserID: models.Anonymous, LoggedIn: false})

	logging.With(s.logger).Layer("session").Op("Logout").Info("session cleared")
	return clearErr
}

// tokenUsable screens the stored token. The client holds no signing secret,
// so the only meaningful local checks are that the token parses and has not
// expired; full verification happens on the server.
func tokenUsable(token string) bool {
	if token == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// Not a JWT. The backend has issued opaque tokens before; accept
		// and let the server be the judge.
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.After(time.Now())
}

// --- credentials file ---

func loadCredentials(path string) (models.Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Credentials{}, nil
	}
	if err != nil {
		return models.Credentials{}, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return models.Credentials{}, fmt.Errorf("parsing credentials file: %w", err)
	}
	return creds, nil
}

// saveCredentials writes atomically via rename so a crash mid-write can not
// leave a half-written file behind.
func saveCredentials(path string, creds models.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func clearCredentials(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
