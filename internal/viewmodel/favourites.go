// Package viewmodel adapts the synchronizer for a UI layer: favourites,
// selection and dialog visibility are exposed as observable values, and every
// mutation keeps them consistent by re-reading the cache afterwards.
package viewmodel

import (
	"context"
	"log/slog"
	"sort"

	"github.com/giannis84/gallery-sync/internal/favourites"
	"github.com/giannis84/gallery-sync/internal/logging"
	"github.com/giannis84/gallery-sync/internal/models"
	"github.com/giannis84/gallery-sync/internal/observe"
	"github.com/giannis84/gallery-sync/internal/session"
)

// BulkDeleteResult is the outcome of one item in a bulk delete. A nil Err
// means the item was removed.
type BulkDeleteResult struct {
	ImageID int64
	Err     error
}

// FavouritesViewModel holds the UI-facing favourites state for the current
// session. It never talks to the gateway or cache directly; all data flows
// through the synchronizer.
type FavouritesViewModel struct {
	sync    *favourites.Synchronizer
	session *session.Store
	logger  *slog.Logger

	favourites   *observe.Value[[]models.FavouriteRecord]
	selection    *observe.Value[map[int64]bool]
	deleteDialog *observe.Value[bool]
}

// New builds a FavouritesViewModel with empty observable state.
func New(sync *favourites.Synchronizer, sessionStore *session.Store, logger *slog.Logger) *FavouritesViewModel {
	return &FavouritesViewModel{
		sync:         sync,
		session:      sessionStore,
		logger:       logger,
		favourites:   observe.NewValue([]models.FavouriteRecord{}),
		selection:    observe.NewValue(map[int64]bool{}),
		deleteDialog: observe.NewValue(false),
	}
}

// Initialize loads the current user's favourites, or publishes an empty list
// when nobody is (validly) logged in. Meant to run once at startup.
func (vm *FavouritesViewModel) Initialize(ctx context.Context) {
	uid := vm.session.CurrentUserID()
	if !uid.IsAuthenticated() {
		vm.favourites.Set([]models.FavouriteRecord{})
		return
	}
	vm.FetchFavourites(ctx, uid)
}

// Favourites returns the current published favourites list.
func (vm *FavouritesViewModel) Favourites() []models.FavouriteRecord {
	return vm.favourites.Get()
}

// SubscribeFavourites streams the favourites list: current value first, then
// every update.
func (vm *FavouritesViewModel) SubscribeFavourites() (<-chan []models.FavouriteRecord, func()) {
	return vm.favourites.Subscribe()
}

// Selection returns the image IDs currently marked for bulk removal.
func (vm *FavouritesViewModel) Selection() map[int64]bool {
	selected := vm.selection.Get()
	copied := make(map[int64]bool, len(selected))
	for id := range selected {
		copied[id] = true
	}
	return copied
}

// SubscribeSelection streams selection changes.
func (vm *FavouritesViewModel) SubscribeSelection() (<-chan map[int64]bool, func()) {
	return vm.selection.Subscribe()
}

// DeleteDialogVisible reports whether the bulk-delete confirmation is shown.
func (vm *FavouritesViewModel) DeleteDialogVisible() bool {
	return vm.deleteDialog.Get()
}

// SubscribeDeleteDialog streams dialog visibility changes.
func (vm *FavouritesViewModel) SubscribeDeleteDialog() (<-chan bool, func()) {
	return vm.deleteDialog.Subscribe()
}

// FetchFavourites refreshes from the server and publishes whatever the cache
// then holds. An unauthenticated user publishes an empty list instead.
func (vm *FavouritesViewModel) FetchFavourites(ctx context.Context, userID models.UserID) {
	if !userID.IsAuthenticated() {
		logging.With(vm.logger).Layer("viewmodel").Op("FetchFavourites").
			Warn("skipping fetch for unauthenticated user")
		vm.favourites.Set([]models.FavouriteRecord{})
		return
	}

	// Refresh failure still falls through to the cached list.
	if err := vm.sync.Refresh(ctx, userID); err != nil {
		logging.With(vm.logger).Layer("viewmodel").Op("FetchFavourites").Err(err).
			Warn("refresh rejected")
	}
	vm.favourites.Set(vm.sync.Favourites(ctx, userID))
}

// AddFavourite adds for the current session user and re-fetches on success.
func (vm *FavouritesViewModel) AddFavourite(ctx context.Context, imageID int64, imageURL, description string) error {
	uid := vm.session.CurrentUserID()
	if !uid.IsAuthenticated() {
		logging.With(vm.logger).Layer("viewmodel").Op("AddFavourite").Image(imageID).
			Warn("cannot add favourite without a logged-in user")
		return favourites.ErrInvalidUser
	}

	if err := vm.sync.AddFavourite(ctx, imageID, uid, imageURL, description); err != nil {
		return err
	}
	vm.FetchFavourites(ctx, uid)
	return nil
}

// RemoveFavourite removes for the current session user and re-fetches on success.
func (vm *FavouritesViewModel) RemoveFavourite(ctx context.Context, imageID int64) error {
	uid := vm.session.CurrentUserID()
	if !uid.IsAuthenticated() {
		logging.With(vm.logger).Layer("viewmodel").Op("RemoveFavourite").Image(imageID).
			Warn("cannot remove favourite without a logged-in user")
		return favourites.ErrInvalidUser
	}

	if err := vm.sync.RemoveFavourite(ctx, uid, imageID); err != nil {
		return err
	}
	vm.FetchFavourites(ctx, uid)
	return nil
}

// IsFavourite reports whether the image is cached as a favourite of the
// current user. Cache-only, safe to call per rendered item.
func (vm *FavouritesViewModel) IsFavourite(ctx context.Context, imageID int64) bool {
	return vm.sync.IsFavouriteCached(ctx, imageID, vm.session.CurrentUserID())
}

// ToggleSelection flips the record's membership in the bulk-delete set.
func (vm *FavouritesViewModel) ToggleSelection(record models.FavouriteRecord) {
	selected := vm.Selection()
	if selected[record.ImageID] {
		delete(selected, record.ImageID)
	} else {
		selected[record.ImageID] = true
	}
	vm.selection.Set(selected)
}

// ShowBulkDeleteDialog makes the bulk-delete confirmation visible.
func (vm *FavouritesViewModel) ShowBulkDeleteDialog() {
	vm.deleteDialog.Set(true)
}

// HideDeleteDialog hides the bulk-delete confirmation.
func (vm *FavouritesViewModel) HideDeleteDialog() {
	vm.deleteDialog.Set(false)
}

// BulkDeleteSelected removes every selected favourite, one at a time. A
// failed item does not abort the batch; the caller gets a result per item so
// the UI can say which ones failed. Afterwards the list is re-fetched, the
// selection cleared and the dialog hidden regardless of per-item outcomes.
func (vm *FavouritesViewModel) BulkDeleteSelected(ctx context.Context) []BulkDeleteResult {
	uid := vm.session.CurrentUserID()
	if !uid.IsAuthenticated() {
		logging.With(vm.logger).Layer("viewmodel").Op("BulkDeleteSelected").
			Warn("cannot bulk delete without a logged-in user")
		return nil
	}

	selected := vm.Selection()
	ids := make([]int64, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	results := make([]BulkDeleteResult, 0, len(ids))
	for _, imageID := range ids {
		err := vm.sync.RemoveFavourite(ctx, uid, imageID)
		if err != nil {
			logging.With(vm.logger).Layer("viewmodel").Op("BulkDeleteSelected").
				User(uid.Int64()).Image(imageID).Err(err).
				Warn("bulk delete item failed, continuing with the rest")
		}
		results = append(results, BulkDeleteResult{ImageID: imageID, Err: err})
	}

	vm.FetchFavourites(ctx, uid)
	vm.selection.Set(map[int64]bool{})
	vm.deleteDialog.Set(false)
	return results
}

// ClearFavouritesOnLogout resets the observable state to empty. The cache
// itself is cleared by the session store's logout cascade, not here, so the
// two paths cannot race on the same rows.
func (vm *FavouritesViewModel) ClearFavouritesOnLogout() {
	vm.favourites.Set([]models.FavouriteRecord{})
	vm.selection.Set(map[int64]bool{})
	vm.deleteDialog.Set(false)
}
