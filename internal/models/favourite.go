// Favourite record and user identity types shared by the cache, gateway and sync layers.

package models

import "fmt"

// FavouriteRecord is a user's saved reference to an image. The pair
// (ImageID, UserID) is the record's identity within the cache.
type FavouriteRecord struct {
	ImageID     int64  `json:"image_id"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UserID      int64  `json:"user_id"`
}

// Valid reports whether the record may be persisted. Records without a
// positive owning user or image ID must never reach the cache.
func (f FavouriteRecord) Valid() bool {
	return f.ImageID > 0 && f.UserID > 0
}

// UserID is either an authenticated user (positive numeric ID) or Anonymous.
// It replaces the -1 / 0 / null sentinel mix that historically signalled
// "no user" inconsistently.
type UserID struct {
	id int64
}

// Anonymous is the unauthenticated user identity.
var Anonymous = UserID{}

// AuthenticatedUser builds a UserID from a backend-issued numeric ID.
// Non-positive IDs yield an error rather than a half-valid identity.
func AuthenticatedUser(id int64) (UserID, error) {
	if id <= 0 {
		return Anonymous, fmt.Errorf("user id must be positive, got %d", id)
	}
	return UserID{id: id}, nil
}

// IsAuthenticated reports whether this identity belongs to a logged-in user.
func (u UserID) IsAuthenticated() bool { return u.id > 0 }

// Int64 returns the numeric ID, or 0 for Anonymous.
func (u UserID) Int64() int64 { return u.id }

func (u UserID) String() string {
	if !u.IsAuthenticated() {
		return "anonymous"
	}
	return fmt.Sprintf("user:%d", u.id)
}
