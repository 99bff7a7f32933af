package cache

import (
	"context"
	"errors"

	"github.com/giannis84/gallery-sync/internal/models"
)

var (
	ErrNotFound      = errors.New("favourite not found")
	ErrInvalidRecord = errors.New("favourite record has no valid owner or image id")
)

// FavouritesRepository defines the interface for the local favourites cache.
// Every operation is scoped by user ID except ClearAll and ClearInvalid, so a
// caller can never reach another user's rows by accident.
type FavouritesRepository interface {
	// Insert upserts a single record, replacing any row with the same
	// (imageID, userID) identity. Invalid records are rejected with
	// ErrInvalidRecord before touching storage.
	Insert(ctx context.Context, record models.FavouriteRecord) error
	// InsertMany upserts a batch of records atomically.
	InsertMany(ctx context.Context, records []models.FavouriteRecord) error
	// GetByID returns the record with the given identity, or ErrNotFound.
	GetByID(ctx context.Context, imageID, userID int64) (*models.FavouriteRecord, error)
	// GetAllForUser returns every cached record owned by userID.
	// No ordering is guaranteed.
	GetAllForUser(ctx context.Context, userID int64) ([]models.FavouriteRecord, error)
	// DeleteByID removes the record with the given identity and reports
	// how many rows were removed (0 or 1).
	DeleteByID(ctx context.Context, imageID, userID int64) (int64, error)
	// ClearForUser removes every record owned by userID.
	ClearForUser(ctx context.Context, userID int64) error
	// ClearAll removes every record regardless of owner.
	ClearAll(ctx context.Context) error
	// ClearInvalid removes legacy or corrupted rows whose owner is
	// missing or non-positive.
	ClearInvalid(ctx context.Context) error
}
