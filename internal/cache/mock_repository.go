package cache

import (
	"context"
	"sync"

	"github.com/giannis84/gallery-sync/internal/models"
)

// MockRepository is a simple in-memory FavouritesRepository intended for unit tests only.
type MockRepository struct {
	mu         sync.RWMutex
	favourites map[int64]map[int64]models.FavouriteRecord // userID -> imageID -> record

	// Error overrides for failure-path tests. When set, the matching
	// operation returns the error instead of touching the store.
	InsertErr error
	ReadErr   error
	DeleteErr error
	ClearErr  error
}

// NewMockRepository returns a MockRepository for testing.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		favourites: make(map[int64]map[int64]models.FavouriteRecord),
	}
}

func (r *MockRepository) Insert(_ context.Context, record models.FavouriteRecord) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	if !record.Valid() {
		return ErrInvalidRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.favourites[record.UserID]; !exists {
		r.favourites[record.UserID] = make(map[int64]models.FavouriteRecord)
	}
	r.favourites[record.UserID][record.ImageID] = record
	return nil
}

func (r *MockRepository) InsertMany(ctx context.Context, records []models.FavouriteRecord) error {
	if r.InsertErr != nil {
		return r.InsertErr
	}
	for _, record := range records {
		if !record.Valid() {
			return ErrInvalidRecord
		}
	}
	for _, record := range records {
		if err := r.Insert(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *MockRepository) GetByID(_ context.Context, imageID, userID int64) (*models.FavouriteRecord, error) {
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	userFavourites, exists := r.favourites[userID]
	if !exists {
		return nil, ErrNotFound
	}
	record, exists := userFavourites[imageID]
	if !exists {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (r *MockRepository) GetAllForUser(_ context.Context, userID int64) ([]models.FavouriteRecord, error) {
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	userFavourites, exists := r.favourites[userID]
	if !exists {
		return []models.FavouriteRecord{}, nil
	}

	result := make([]models.FavouriteRecord, 0, len(userFavourites))
	for _, record := range userFavourites {
		result = append(result, record)
	}
	return result, nil
}

func (r *MockRepository) DeleteByID(_ context.Context, imageID, userID int64) (int64, error) {
	if r.DeleteErr != nil {
		return 0, r.DeleteErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	userFavourites, exists := r.favourites[userID]
	if !exists {
		return 0, nil
	}
	if _, exists := userFavourites[imageID]; !exists {
		return 0, nil
	}
	delete(userFavourites, imageID)
	return 1, nil
}

func (r *MockRepository) ClearForUser(_ context.Context, userID int64) error {
	if r.ClearErr != nil {
		return r.ClearErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.favourites, userID)
	return nil
}

func (r *MockRepository) ClearAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.favourites = make(map[int64]map[int64]models.FavouriteRecord)
	return nil
}

func (r *MockRepository) ClearInvalid(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID := range r.favourites {
		if userID <= 0 {
			delete(r.favourites, userID)
		}
	}
	return nil
}
