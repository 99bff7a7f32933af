package favourites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/giannis84/gallery-sync/internal/cache"
	"github.com/giannis84/gallery-sync/internal/gateway"
)

// fakeBackend is a minimal favourites API with real routes and JSON, so the
// synchronizer is exercised through the actual gateway client.
type fakeBackend struct {
	mu   sync.Mutex
	favs map[int64]map[int64]wireItem // userID -> imageID -> item
}

type wireItem struct {
	ImageID     int64  `json:"allImagesId"`
	ImageURL    string `json:"allImageUrl"`
	Description string `json:"allImageDescriptions"`
	Category    string `json:"category"`
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{favs: make(map[int64]map[int64]wireItem)}
}

func (b *fakeBackend) router() chi.Router {
	r := chi.NewRouter()

	r.Get("/favorites/user/{userID}", func(w http.ResponseWriter, req *http.Request) {
		userID, _ := strconv.ParseInt(chi.URLParam(req, "userID"), 10, 64)
		b.mu.Lock()
		items := make([]wireItem, 0, len(b.favs[userID]))
		for _, item := range b.favs[userID] {
			items = append(items, item)
		}
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(items)
	})

	r.Post("/favorites/addFav", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ImageID int64 `json:"imageId"`
			UserID  int64 `json:"userId"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		if _, ok := b.favs[body.UserID]; !ok {
			b.favs[body.UserID] = make(map[int64]wireItem)
		}
		b.favs[body.UserID][body.ImageID] = wireItem{
			ImageID:     body.ImageID,
			ImageURL:    "https://img.example.com/" + strconv.FormatInt(body.ImageID, 10),
			Description: "server enriched",
			Category:    "nature",
		}
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	r.Delete("/favorites/delete/{userID}/{imageID}", func(w http.ResponseWriter, req *http.Request) {
		userID, _ := strconv.ParseInt(chi.URLParam(req, "userID"), 10, 64)
		imageID, _ := strconv.ParseInt(chi.URLParam(req, "imageID"), 10, 64)
		b.mu.Lock()
		delete(b.favs[userID], imageID)
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return r
}

func TestSynchronizerOverHTTPGateway(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router())
	t.Cleanup(srv.Close)

	client := gateway.NewClient(srv.URL, "test-key", nil, 2*time.Second, testLogger())
	repo := cache.NewMockRepository()
	s := NewSynchronizer(client, repo, testLogger())
	uid := userID(t, 7)

	// Add round-trips through HTTP, lands in cache with the server's
	// enriched fields after the reconciling refresh.
	if err := s.AddFavourite(ctx, 5, uid, "local-url", "local desc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	favs := s.Favourites(ctx, uid)
	if len(favs) != 1 {
		t.Fatalf("expected 1 favourite, got %d", len(favs))
	}
	if favs[0].Description != "server enriched" || favs[0].Category != "nature" {
		t.Errorf("expected server's version after reconciliation, got %+v", favs[0])
	}

	// Remove round-trips and clears the cache entry.
	if err := s.RemoveFavourite(ctx, uid, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsFavouriteCached(ctx, 5, uid) {
		t.Error("expected favourite gone after remove")
	}

	// Refresh against a server list replaced out-of-band.
	backend.mu.Lock()
	backend.favs[7] = map[int64]wireItem{
		9: {ImageID: 9, ImageURL: "u9", Category: "art"},
	}
	backend.mu.Unlock()

	if err := s.Refresh(ctx, uid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := imageIDs(s.Favourites(ctx, uid))
	if len(got) != 1 || got[0] != 9 {
		t.Errorf("expected cache to mirror server [9], got %v", got)
	}
}

func TestSynchronizerSurvivesBackendOutage(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.router())

	client := gateway.NewClient(srv.URL, "test-key", nil, 500*time.Millisecond, testLogger())
	repo := cache.NewMockRepository()
	s := NewSynchronizer(client, repo, testLogger())
	uid := userID(t, 7)

	if err := s.AddFavourite(ctx, 5, uid, "u", "d"); err != nil {
		t.Fatal(err)
	}

	srv.Close() // backend goes away

	// Reads still serve the cache; refresh swallows the outage.
	if err := s.Refresh(ctx, uid); err != nil {
		t.Fatalf("refresh must swallow outages, got: %v", err)
	}
	if !s.IsFavouriteCached(ctx, 5, uid) {
		t.Error("cache must survive a failed refresh")
	}

	// Writes surface the outage without touching the cache.
	if err := s.AddFavourite(ctx, 6, uid, "u", "d"); err == nil {
		t.Fatal("expected add to fail during outage")
	}
	if s.IsFavouriteCached(ctx, 6, uid) {
		t.Error("failed add must not be cached")
	}

	mine := s.Favourites(ctx, uid)
	if len(mine) != 1 {
		t.Errorf("expected cached favourite to remain readable offline, got %v", mine)
	}
}
