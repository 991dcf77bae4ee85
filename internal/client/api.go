package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type User struct {
	ID          uint           `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	Preferences map[string]any `json:"preferences"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	User *User `json:"user"`
	tokenPair
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type Household struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Notes        string    `json:"notes"`
	ColorTheme   string    `json:"color_theme"`
	MemberCount  int64     `json:"member_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type HouseholdPage struct {
	Households []Household `json:"households"`
	Pagination Pagination  `json:"pagination"`
}

type Person struct {
	ID            uint   `json:"id"`
	HouseholdID   uint   `json:"household_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Role          string `json:"role"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	HouseholdName string `json:"household_name"`
	City          string `json:"city"`
}

type PeoplePage struct {
	People     []Person   `json:"people"`
	Pagination Pagination `json:"pagination"`
}

// FirstRun reports whether the server still accepts the initial setup
func (c *Client) FirstRun(ctx context.Context) (bool, error) {
	var out struct {
		IsFirstRun bool `json:"isFirstRun"`
	}
	if err := c.Do(ctx, http.MethodGet, "/auth/first-run", nil, &out); err != nil {
		return false, err
	}
	return out.IsFirstRun, nil
}

// Setup creates the first admin account and stores its session
func (c *Client) Setup(ctx context.Context, username, email, password string) (*User, error) {
	var out authResponse
	err := c.Do(ctx, http.MethodPost, "/auth/setup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, c.save(out)
}

// Login authenticates and stores the new session
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var out authResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.User, c.save(out)
}

// Logout revokes the server-side session and always clears local state
func (c *Client) Logout(ctx context.Context) error {
	session, err := c.store.Load()
	if err != nil {
		return err
	}

	var remoteErr error
	if session.RefreshToken != "" {
		remoteErr = c.Do(ctx, http.MethodPost, "/auth/logout", map[string]string{
			"refreshToken": session.RefreshToken,
		}, nil)
	}

	if err := c.store.Clear(); err != nil {
		return err
	}
	return remoteErr
}

// CurrentUser fetches the caller's profile and refreshes the stored copy
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.Do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}

	session, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if session.LoggedIn() {
		session.User = &user
		if err := c.store.Save(session); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// UpdatePreferences replaces the caller's preferences on the server and in
// the stored profile.
func (c *Client) UpdatePreferences(ctx context.Context, prefs map[string]any) error {
	var out struct {
		Preferences map[string]any `json:"preferences"`
	}
	err := c.Do(ctx, http.MethodPut, "/users/me/preferences", map[string]any{"preferences": prefs}, &out)
	if err != nil {
		return err
	}

	session, err := c.store.Load()
	if err != nil {
		return err
	}
	if session.User != nil {
		session.User.Preferences = out.Preferences
		return c.store.Save(session)
	}
	return nil
}

func (c *Client) Households(ctx context.Context, page, limit int, search string) (*HouseholdPage, error) {
	var out HouseholdPage
	if err := c.Do(ctx, http.MethodGet, "/households?"+listQuery(page, limit, search).Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) People(ctx context.Context, page, limit int, search, sortBy string) (*PeoplePage, error) {
	q := listQuery(page, limit, search)
	if sortBy != "" {
		q.Set("sortBy", sortBy)
	}
	var out PeoplePage
	if err := c.Do(ctx, http.MethodGet, "/people?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateHousehold(ctx context.Context, h Household) (*Household, error) {
	var out Household
	if err := c.Do(ctx, http.MethodPost, "/households", h, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteHousehold(ctx context.Context, id uint) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/households/%d", id), nil, nil)
}

func (c *Client) save(out authResponse) error {
	return c.store.Save(Session{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		User:         out.User,
	})
}

func listQuery(page, limit int, search string) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if search != "" {
		q.Set("search", search)
	}
	return q
}
