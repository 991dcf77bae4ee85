// Package client is a Go front-end for the famli HTTP API. It keeps the
// session in a TokenStore, attaches the access token to every request except
// authentication calls, and on a 401 refreshes the pair once and retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSessionExpired means the refresh token was rejected and the local
// session has been cleared. The user has to log in again.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:3001/api".
func New(baseURL string, store TokenStore, opts ...Option) *Client {
	if store == nil {
		store = NewMemoryStore()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Store() TokenStore {
	return c.store
}

// Do sends a JSON request and decodes a JSON answer into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			return err
		}
		// one retry only, whatever it returns
		if resp, err = c.send(ctx, method, path, payload); err != nil {
			return err
		}
	}

	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if !isAuthPath(path) {
		session, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		if session.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		}
	}

	return c.http.Do(req)
}

// refresh swaps the stored pair for a new one. Any failure wipes the
// session.
func (c *Client) refresh(ctx context.Context) error {
	session, err := c.store.Load()
	if err != nil {
		return err
	}
	if session.RefreshToken == "" {
		_ = c.store.Clear()
		return ErrSessionExpired
	}

	var pair tokenPair
	err = c.Do(ctx, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": session.RefreshToken}, &pair)
	if err != nil {
		_ = c.store.Clear()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return ErrSessionExpired
		}
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	return c.store.Save(session)
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// Authentication endpoints never carry a bearer token
func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/")
}
