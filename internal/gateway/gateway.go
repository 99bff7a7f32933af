// Package gateway is the thin client for the remote favourites backend.
// It performs exactly one attempt per call and surfaces failures as typed
// errors; retry and fallback policy belong to the synchronizer.
package gateway

import (
	"context"
	"fmt"

	"github.com/giannis84/gallery-sync/internal/models"
)

// FavouritesGateway abstracts the favourites routes of the backend.
type FavouritesGateway interface {
	// FetchUserFavourites returns the server's authoritative favourites
	// list for the user.
	FetchUserFavourites(ctx context.Context, userID int64) ([]models.FavouriteRecord, error)
	// AddFavourite registers the image as a favourite of the user.
	AddFavourite(ctx context.Context, imageID, userID int64) error
	// RemoveFavourite deletes the favourite on the server.
	RemoveFavourite(ctx context.Context, userID, imageID int64) error
}

// AuthGateway abstracts the auth routes that produce the session identity.
type AuthGateway interface {
	Login(ctx context.Context, username, password string) (models.Credentials, error)
	Signup(ctx context.Context, username, password, email string) (models.Credentials, error)
	ForgotPassword(ctx context.Context, email string) error
}

// TransportError is a connectivity-level failure: the request never produced
// an HTTP response (no route, DNS failure, timeout).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the backend.
type ServerError struct {
	Op         string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
}
