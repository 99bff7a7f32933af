package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giannis84/gallery-sync/internal/logging"
	"github.com/giannis84/gallery-sync/internal/models"
)

// TokenSource supplies the current bearer token, or "" when logged out.
// The session store implements this.
type TokenSource interface {
	Token() string
}

// Client talks HTTP+JSON to the favourites backend. It implements both
// FavouritesGateway and AuthGateway.
type Client struct {
	baseURL string
	apiKey  string
	tokens  TokenSource
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds a gateway client. tokens may be nil for unauthenticated
// use (login/signup only); timeout bounds every call.
func NewClient(baseURL, apiKey string, tokens TokenSource, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		tokens:  tokens,
		http:    &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

// favouriteItem is the backend's wire representation of a favourite image.
// Field names are the backend's, not ours.
type favouriteItem struct {
	ImageID     int64  `json:"allImagesId"`
	ImageURL    string `json:"allImageUrl"`
	Description string `json:"allImageDescriptions"`
	Category    string `json:"category"`
}

type favouriteRequest struct {
	ImageID int64 `json:"imageId"`
	UserID  int64 `json:"userId"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"userId"`
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (c *Client) FetchUserFavourites(ctx context.Context, userID int64) ([]models.FavouriteRecord, error) {
	const op = "FetchUserFavourites"

	var items []favouriteItem
	url := fmt.Sprintf("%s/favorites/user/%d", c.baseURL, userID)
	if err := c.call(ctx, op, http.MethodGet, url, nil, &items); err != nil {
		return nil, err
	}

	records := make([]models.FavouriteRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.FavouriteRecord{
			ImageID:     item.ImageID,
			ImageURL:    item.ImageURL,
			Description: item.Description,
			Category:    item.Category,
			UserID:      userID,
		})
	}
	return records, nil
}

func (c *Client) AddFavourite(ctx context.Context, imageID, userID int64) error {
	const op = "AddFavourite"
	url := c.baseURL + "/favorites/addFav"
	return c.call(ctx, op, http.MethodPost, url, favouriteRequest{ImageID: imageID, UserID: userID}, nil)
}

func (c *Client) RemoveFavourite(ctx context.Context, userID, imageID int64) error {
	const op = "RemoveFavourite"
	url := fmt.Sprintf("%s/favorites/delete/%d/%d", c.baseURL, userID, imageID)
	return c.call(ctx, op, http.MethodDelete, url, nil, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (models.Credentials, error) {
	const op = "Login"

	var resp loginResponse
	url := c.baseURL + "/api/auth/login"
	if err := c.call(ctx, op, http.MethodPost, url, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{UserID: resp.UserID, Token: resp.Token, Username: username}, nil
}

func (c *Client) Signup(ctx context.Context, username, password, email string) (models.Credentials, error) {
	const op = "Signup"

	var resp signupResponse
	url := c.baseURL + "/api/auth/signup"
	if err := c.call(ctx, op, http.MethodPost, url, signupRequest{Username: username, Password: password, Email: email}, &resp); err != nil {
		return models.Credentials{}, err
	}

	logging.With(c.logger).Layer("gateway").Op(op).User(resp.UserID).
		Str("message", resp.Message).Info("signup accepted")

	// Signup does not issue a token; the caller logs in afterwards.
	return models.Credentials{UserID: resp.UserID, Username: username}, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	const op = "ForgotPassword"
	url := c.baseURL + "/api/auth/forgot-password"
	return c.call(ctx, op, http.MethodPost, url, forgotPasswordRequest{Email: email}, nil)
}

// call performs one bounded HTTP request. A nil body sends no payload; a
// non-nil out decodes the 2xx response body as JSON.
func (c *Client) call(ctx context.Context, op, method, url string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.With(c.logger).Layer("gateway").Op(op).Err(err).
			Warn("request failed before reaching the server")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.With(c.logger).Layer("gateway").Op(op).
			Int("status_code", resp.StatusCode).Warn("server rejected request")
		return &ServerError{Op: op, StatusCode: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return nil
}
