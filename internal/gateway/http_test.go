package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticToken string

func (s staticToken) Token() string { return string(s) }

// newFakeBackend serves the favourites routes the real backend exposes.
func newFakeBackend(t *testing.T, register func(r chi.Router)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchUserFavourites(t *testing.T) {
	t.Run("maps wire items to records", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Get("/favorites/user/{userID}", func(w http.ResponseWriter, req *http.Request) {
				if chi.URLParam(req, "userID") != "7" {
					t.Errorf("unexpected userID path param: %s", chi.URLParam(req, "userID"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`[
					{"allImagesId": 1, "allImageUrl": "u1", "allImageDescriptions": "d1", "category": "c1"},
					{"allImagesId": 2, "allImageUrl": "u2", "allImageDescriptions": "d2", "category": "c2"}
				]`))
			})
		})

		client := NewClient(srv.URL, "key", staticToken("tok"), time.Second, testLogger())
		records, err := client.FetchUserFavourites(context.Background(), 7)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ImageID != 1 || records[0].ImageURL != "u1" || records[0].Category != "c1" {
			t.Errorf("unexpected record: %+v", records[0])
		}
		if records[0].UserID != 7 || records[1].UserID != 7 {
			t.Error("fetched records must be stamped with the requesting user")
		}
	})

	t.Run("non-2xx becomes ServerError", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Get("/favorites/user/{userID}", func(w http.ResponseWriter, req *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			})
		})

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		_, err := client.FetchUserFavourites(context.Background(), 7)

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got: %v", err)
		}
		if serverErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", serverErr.StatusCode)
		}
	})

	t.Run("unreachable server becomes TransportError", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {})
		srv.Close()

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		_, err := client.FetchUserFavourites(context.Background(), 7)

		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got: %v", err)
		}
	})

	t.Run("timeout becomes TransportError", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Get("/favorites/user/{userID}", func(w http.ResponseWriter, req *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte(`[]`))
			})
		})

		client := NewClient(srv.URL, "key", nil, 20*time.Millisecond, testLogger())
		_, err := client.FetchUserFavourites(context.Background(), 7)

		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			t.Fatalf("expected TransportError, got: %v", err)
		}
	})
}

func TestRequestHeaders(t *testing.T) {
	var gotAPIKey, gotAuth, gotRequestID string
	srv := newFakeBackend(t, func(r chi.Router) {
		r.Get("/favorites/user/{userID}", func(w http.ResponseWriter, req *http.Request) {
			gotAPIKey = req.Header.Get("X-Api-Key")
			gotAuth = req.Header.Get("Authorization")
			gotRequestID = req.Header.Get("X-Request-ID")
			w.Write([]byte(`[]`))
		})
	})

	client := NewClient(srv.URL, "secret-key", staticToken("tok123"), time.Second, testLogger())
	if _, err := client.FetchUserFavourites(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAPIKey != "secret-key" {
		t.Errorf("expected X-Api-Key header, got %q", gotAPIKey)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("expected a non-empty X-Request-ID header")
	}
}

func TestAddFavourite(t *testing.T) {
	t.Run("posts image and user ids", func(t *testing.T) {
		var got favouriteRequest
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Post("/favorites/addFav", func(w http.ResponseWriter, req *http.Request) {
				if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
					t.Errorf("decoding request body: %v", err)
				}
				w.WriteHeader(http.StatusOK)
			})
		})

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		if err := client.AddFavourite(context.Background(), 5, 7); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ImageID != 5 || got.UserID != 7 {
			t.Errorf("unexpected request body: %+v", got)
		}
	})

	t.Run("rejection becomes ServerError", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Post("/favorites/addFav", func(w http.ResponseWriter, req *http.Request) {
				http.Error(w, "duplicate", http.StatusConflict)
			})
		})

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		err := client.AddFavourite(context.Background(), 5, 7)

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got: %v", err)
		}
		if serverErr.StatusCode != http.StatusConflict {
			t.Errorf("expected status 409, got %d", serverErr.StatusCode)
		}
	})
}

func TestRemoveFavourite(t *testing.T) {
	var gotUser, gotImage string
	srv := newFakeBackend(t, func(r chi.Router) {
		r.Delete("/favorites/delete/{userID}/{imageID}", func(w http.ResponseWriter, req *http.Request) {
			gotUser = chi.URLParam(req, "userID")
			gotImage = chi.URLParam(req, "imageID")
			w.WriteHeader(http.StatusOK)
		})
	})

	client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
	if err := client.RemoveFavourite(context.Background(), 7, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "7" || gotImage != "5" {
		t.Errorf("expected /favorites/delete/7/5, got user=%s image=%s", gotUser, gotImage)
	}
}

func TestLogin(t *testing.T) {
	t.Run("returns credentials on success", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
				var body loginRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					t.Errorf("decoding login body: %v", err)
				}
				if body.Username != "alice" || body.Password != "pw" {
					t.Errorf("unexpected login body: %+v", body)
				}
				json.NewEncoder(w).Encode(loginResponse{Token: "jwt-token", UserID: 7})
			})
		})

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		creds, err := client.Login(context.Background(), "alice", "pw")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.UserID != 7 || creds.Token != "jwt-token" || creds.Username != "alice" {
			t.Errorf("unexpected credentials: %+v", creds)
		}
	})

	t.Run("bad credentials become ServerError", func(t *testing.T) {
		srv := newFakeBackend(t, func(r chi.Router) {
			r.Post("/api/auth/login", func(w http.ResponseWriter, req *http.Request) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			})
		})

		client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
		_, err := client.Login(context.Background(), "alice", "wrong")

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected ServerError, got: %v", err)
		}
	})
}

func TestSignup(t *testing.T) {
	srv := newFakeBackend(t, func(r chi.Router) {
		r.Post("/api/auth/signup", func(w http.ResponseWriter, req *http.Request) {
			json.NewEncoder(w).Encode(signupResponse{Message: "created", UserID: 11})
		})
	})

	client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
	creds, err := client.Signup(context.Background(), "bob", "pw", "bob@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.UserID != 11 || creds.Username != "bob" {
		t.Errorf("unexpected credentials: %+v", creds)
	}
	if creds.Token != "" {
		t.Error("signup must not fabricate a token")
	}
}

func TestForgotPassword(t *testing.T) {
	var gotEmail string
	srv := newFakeBackend(t, func(r chi.Router) {
		r.Post("/api/auth/forgot-password", func(w http.ResponseWriter, req *http.Request) {
			var body forgotPasswordRequest
			json.NewDecoder(req.Body).Decode(&body)
			gotEmail = body.Email
			w.WriteHeader(http.StatusOK)
		})
	})

	client := NewClient(srv.URL, "key", nil, time.Second, testLogger())
	if err := client.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotEmail != "alice@example.com" {
		t.Errorf("expected email in request body, got %q", gotEmail)
	}
}
