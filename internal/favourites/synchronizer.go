// Package favourites owns the consistency policy between the authoritative
// server favourites and the local cache. The cache is the only read path;
// the server is the only write authority. A successful refresh replaces the
// user's cached rows wholesale, and a failed refresh leaves them untouched
// as the offline fallback.
package favourites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/giannis84/gallery-sync/internal/cache"
	"github.com/giannis84/gallery-sync/internal/gateway"
	"github.com/giannis84/gallery-sync/internal/logging"
	"github.com/giannis84/gallery-sync/internal/models"
)

// ErrInvalidUser rejects operations attempted without an authenticated user.
// No gateway or cache call is made for such requests.
var ErrInvalidUser = errors.New("operation requires an authenticated user")

// Synchronizer reconciles the remote favourites store with the local cache,
// one user scope at a time. Operations for the same user are serialized so
// an add's reconciling refresh cannot interleave with a user-initiated one.
type Synchronizer struct {
	gw     gateway.FavouritesGateway
	repo   cache.FavouritesRepository
	logger *slog.Logger

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
}

// NewSynchronizer builds a Synchronizer over the given gateway and cache.
func NewSynchronizer(gw gateway.FavouritesGateway, repo cache.FavouritesRepository, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		gw:        gw,
		repo:      repo,
		logger:    logger,
		userLocks: make(map[int64]*sync.Mutex),
	}
}

// lockUser serializes operations per user scope and returns the unlock func.
func (s *Synchronizer) lockUser(userID int64) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Refresh pulls the server's favourites for the user and replaces the cached
// set with them. Gateway failures are swallowed after logging: the stale
// cache stays in place as the fallback source of truth until a later refresh
// succeeds. Only an invalid user is reported as an error.
func (s *Synchronizer) Refresh(ctx context.Context, userID models.UserID) error {
	if !userID.IsAuthenticated() {
		logging.With(s.logger).Layer("synchronizer").Op("Refresh").
			Warn("refresh skipped for unauthenticated user")
		return ErrInvalidUser
	}

	unlock := s.lockUser(userID.Int64())
	defer unlock()
	s.refreshLocked(ctx, userID.Int64())
	return nil
}

// refreshLocked runs the destructive replace. Callers must hold the user lock.
func (s *Synchronizer) refreshLocked(ctx context.Context, userID int64) {
	records, err := s.gw.FetchUserFavourites(ctx, userID)
	if err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("Refresh").User(userID).Err(err).
			Warn("server fetch failed, keeping cached favourites")
		return
	}

	if err := s.repo.ClearForUser(ctx, userID); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("Refresh").User(userID).Err(err).
			Error("cache clear failed, skipping replace")
		return
	}
	if err := s.repo.InsertMany(ctx, records); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("Refresh").User(userID).Err(err).
			Error("cache write failed after clear")
		return
	}

	logging.With(s.logger).Layer("synchronizer").Op("Refresh").User(userID).
		Int("count", len(records)).Info("cache replaced with server favourites")
}

// Favourites returns the cached favourites for the user. It never touches
// the network; freshness is whatever the last successful Refresh achieved.
// Storage failures degrade to an empty list rather than an error.
func (s *Synchronizer) Favourites(ctx context.Context, userID models.UserID) []models.FavouriteRecord {
	if !userID.IsAuthenticated() {
		return []models.FavouriteRecord{}
	}

	records, err := s.repo.GetAllForUser(ctx, userID.Int64())
	if err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("Favourites").User(userID.Int64()).Err(err).
			Error("cache read failed, returning empty list")
		return []models.FavouriteRecord{}
	}
	return records
}

// AddFavourite registers the image with the server and, on ack, caches it
// and refreshes to pick up any server-side enrichment of the record. A
// gateway failure leaves the cache untouched: no phantom local favourites
// the server rejected.
func (s *Synchronizer) AddFavourite(ctx context.Context, imageID int64, userID models.UserID, imageURL, description string) error {
	if !userID.IsAuthenticated() || imageID <= 0 {
		logging.With(s.logger).Layer("synchronizer").Op("AddFavourite").Image(imageID).
			Warn("add rejected before any I/O")
		return ErrInvalidUser
	}

	unlock := s.lockUser(userID.Int64())
	defer unlock()

	if err := s.gw.AddFavourite(ctx, imageID, userID.Int64()); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("AddFavourite").
			User(userID.Int64()).Image(imageID).Err(err).
			Warn("server rejected add, cache untouched")
		return fmt.Errorf("adding favourite %d: %w", imageID, err)
	}

	// Category is unknown at add time; the reconciling refresh below
	// fills in the server's version of the record.
	record := models.FavouriteRecord{
		ImageID:     imageID,
		ImageURL:    imageURL,
		Description: description,
		UserID:      userID.Int64(),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("AddFavourite").
			User(userID.Int64()).Image(imageID).Err(err).
			Error("server accepted add but cache write failed")
		return fmt.Errorf("caching favourite %d: %w", imageID, err)
	}

	// Reconcile with server truth; the server may normalise the record.
	s.refreshLocked(ctx, userID.Int64())
	return nil
}

// RemoveFavourite deletes the favourite on the server and, on ack, drops it
// from the cache. On failure the cached entry stays: no optimistic removal.
func (s *Synchronizer) RemoveFavourite(ctx context.Context, userID models.UserID, imageID int64) error {
	if !userID.IsAuthenticated() || imageID <= 0 {
		logging.With(s.logger).Layer("synchronizer").Op("RemoveFavourite").Image(imageID).
			Warn("remove rejected before any I/O")
		return ErrInvalidUser
	}

	unlock := s.lockUser(userID.Int64())
	defer unlock()

	if err := s.gw.RemoveFavourite(ctx, userID.Int64(), imageID); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("RemoveFavourite").
			User(userID.Int64()).Image(imageID).Err(err).
			Warn("server rejected remove, cache entry kept")
		return fmt.Errorf("removing favourite %d: %w", imageID, err)
	}

	// Zero rows deleted means the entry was already gone; that is success.
	if _, err := s.repo.DeleteByID(ctx, imageID, userID.Int64()); err != nil {
		logging.With(s.logger).Layer("synchronizer").Op("RemoveFavourite").
			User(userID.Int64()).Image(imageID).Err(err).
			Error("server accepted remove but cache delete failed")
		return fmt.Errorf("uncaching favourite %d: %w", imageID, err)
	}
	return nil
}

// IsFavouriteCached reports whether the image is cached as a favourite of
// the user. Pure cache lookup, cheap enough for toggle-state rendering.
func (s *Synchronizer) IsFavouriteCached(ctx context.Context, imageID int64, userID models.UserID) bool {
	if !userID.IsAuthenticated() {
		return false
	}

	_, err := s.repo.GetByID(ctx, imageID, userID.Int64())
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logging.With(s.logger).Layer("synchronizer").Op("IsFavouriteCached").
			User(userID.Int64()).Image(imageID).Err(err).
			Error("cache lookup failed, reporting not favourited")
	}
	return false
}

// ClearForUser drops the user's cached favourites. Used by the session store
// during logout.
func (s *Synchronizer) ClearForUser(ctx context.Context, userID models.UserID) error {
	if !userID.IsAuthenticated() {
		return ErrInvalidUser
	}

	unlock := s.lockUser(userID.Int64())
	defer unlock()
	return s.repo.ClearForUser(ctx, userID.Int64())
}
