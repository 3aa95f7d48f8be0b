package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"phishvault/internal/client/models"
)

// DefaultRequestTimeout bounds every remote-store call so a hung server
// cannot block the local state machine.
const DefaultRequestTimeout = 30 * time.Second

// HTTPClient talks JSON over authenticated HTTP to the remote store.
// It also implements Identity: after Login it holds the user id and a
// bearer token pair, refreshing the access token transparently on expiry.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	userID       string
	accessToken  string
	refreshToken string
}

// NewHTTPClient returns a client bound to baseURL. A non-positive timeout
// falls back to DefaultRequestTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// UserID returns the authenticated user's stable identifier, or "" before
// a successful Login.
func (c *HTTPClient) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// AccessToken returns the current bearer credential.
func (c *HTTPClient) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken == "" {
		return "", ErrUnauthorized
	}
	return c.accessToken, nil
}

func (c *HTTPClient) Close() error { return nil }

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/auth/register", body, nil, false)
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, false); err != nil {
		return err
	}
	c.mu.Lock()
	c.userID = resp.UserID
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()
	return nil
}

// Logout drops the token state. Local, no request.
func (c *HTTPClient) Logout() {
	c.mu.Lock()
	c.userID, c.accessToken, c.refreshToken = "", "", ""
	c.mu.Unlock()
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, false)
}

func (c *HTTPClient) GetEncryptionStatus(ctx context.Context) (*EncryptionStatus, error) {
	var status EncryptionStatus
	if err := c.do(ctx, http.MethodGet, "/encryption/status", nil, &status, true); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) SaveSalt(ctx context.Context, salt []byte) error {
	body := map[string][]byte{"salt": salt}
	return c.do(ctx, http.MethodPost, "/encryption/salt", body, nil, true)
}

func (c *HTTPClient) SaveAttempts(ctx context.Context, attempts int) error {
	body := map[string]int{"attempts": attempts}
	return c.do(ctx, http.MethodPost, "/encryption/save-attempts", body, nil, true)
}

func (c *HTTPClient) LockUser(ctx context.Context, lockedUntil time.Time, attempts int) error {
	body := map[string]any{"lockedUntil": lockedUntil.UTC(), "attempts": attempts}
	return c.do(ctx, http.MethodPost, "/encryption/lock-user", body, nil, true)
}

func (c *HTTPClient) ListAnalyses(ctx context.Context, limit int) ([]*models.EncryptedAnalysis, error) {
	path := "/analyses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var items []*models.EncryptedAnalysis
	if err := c.do(ctx, http.MethodGet, path, nil, &items, true); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) SaveAnalysis(ctx context.Context, a *models.EncryptedAnalysis) error {
	return c.do(ctx, http.MethodPost, "/analyses", a, nil, true)
}

// do performs one JSON request/response exchange. Authenticated requests
// carry a bearer token; a 401 on a valid refresh token triggers a single
// token refresh and one retry.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	err := c.doOnce(ctx, method, path, body, out, authed)
	if err == nil || !authed || !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return err
	}

	if rerr := c.refresh(ctx, refresh); rerr != nil {
		return err
	}
	return c.doOnce(ctx, method, path, body, out, authed)
}

func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	var resp loginResponse
	if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", body, &resp, false); err != nil {
		return err
	}
	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body, out any, authed bool) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("bad request path: %w", err)
	}
	// JoinPath escapes '?', so append the query separately.
	var query string
	if i := bytes.IndexByte([]byte(path), '?'); i >= 0 {
		u, err = url.JoinPath(c.baseURL, path[:i])
		if err != nil {
			return fmt.Errorf("bad request path: %w", err)
		}
		query = path[i:]
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u+query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.AccessToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
