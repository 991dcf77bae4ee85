package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"famli/internal/config"
	"famli/internal/logging"
	"famli/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setupTestConfig returns a configuration backed by a temporary database
func setupTestConfig(t *testing.T) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "famli_test.db")},
		},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			Issuer:        "famli-test",
		},
		Security: config.SecurityConfig{
			BcryptCost: bcrypt.MinCost,
		},
	}
}

// setupTestRouter creates a router with all routes on a fresh database
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	return setupTestRouterWith(t, Dependencies{})
}

func setupTestRouterWith(t *testing.T, deps Dependencies) *gin.Engine {
	t.Helper()

	cfg := setupTestConfig(t)
	db, err := models.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	deps.DB, deps.Config, deps.Logger = db, cfg, logging.Discard()
	SetupRoutes(r, deps)
	return r
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decodeBody(t, w)["error"].(string)
	return msg
}

type session struct {
	id      uint
	access  string
	refresh string
}

func setupAdmin(t *testing.T, r http.Handler) session {
	t.Helper()
	w := call(t, r, "POST", "/api/auth/setup", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "longenough1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return sessionFrom(t, w)
}

func login(t *testing.T, r http.Handler, username, password string) session {
	t.Helper()
	w := call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionFrom(t, w)
}

func sessionFrom(t *testing.T, w *httptest.ResponseRecorder) session {
	body := decodeBody(t, w)
	user := body["user"].(map[string]interface{})
	return session{
		id:      uint(user["id"].(float64)),
		access:  body["accessToken"].(string),
		refresh: body["refreshToken"].(string),
	}
}

func createUser(t *testing.T, r http.Handler, admin session, username, role string) uint {
	t.Helper()
	w := call(t, r, "POST", "/api/users", admin.access, map[string]string{
		"username": username, "email": username + "@x.com", "password": "longenough1", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decodeBody(t, w)["id"].(float64))
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(t)

	w := call(t, r, "GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestAuthRoutes(t *testing.T) {
	r := setupTestRouter(t)

	t.Run("first run before setup", func(t *testing.T) {
		w := call(t, r, "GET", "/api/auth/first-run", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["isFirstRun"])
	})

	t.Run("setup validates its input", func(t *testing.T) {
		w := call(t, r, "POST", "/api/auth/setup", "", map[string]string{"username": "alice", "email": "a@x.com", "password": "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Password must be at least 8 characters", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/setup", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "All fields are required", errorOf(t, w))
	})

	var alice session
	t.Run("setup creates the admin", func(t *testing.T) {
		w := call(t, r, "POST", "/api/auth/setup", "", map[string]string{
			"username": "alice", "email": "a@x.com", "password": "longenough1",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "Setup completed successfully", body["message"])
		user := body["user"].(map[string]interface{})
		assert.Equal(t, "admin", user["role"])
		assert.Equal(t, "alice", user["username"])
		assert.NotContains(t, user, "password_hash")
		assert.NotContains(t, user, "PasswordHash")
		alice = sessionFrom(t, w)
	})

	t.Run("setup is locked afterwards", func(t *testing.T) {
		for _, payload := range []interface{}{
			map[string]string{},
			map[string]string{"username": "mallory", "email": "m@x.com", "password": "longenough1"},
			"not an object",
		} {
			w := call(t, r, "POST", "/api/auth/setup", "", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Setup already completed", errorOf(t, w))
		}

		w := call(t, r, "GET", "/api/auth/first-run", "", nil)
		assert.Equal(t, false, decodeBody(t, w)["isFirstRun"])
	})

	t.Run("login", func(t *testing.T) {
		w := call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrongpassword"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": "nobody", "password": "longenough1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Username and password are required", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": "alice", "password": "longenough1"})
		require.Equal(t, http.StatusOK, w.Code)
		user := decodeBody(t, w)["user"].(map[string]interface{})
		assert.Equal(t, map[string]interface{}{}, user["preferences"])
	})

	t.Run("access token works on protected routes", func(t *testing.T) {
		w := call(t, r, "GET", "/api/users/me", alice.access, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "alice", decodeBody(t, w)["username"])
	})

	t.Run("refresh", func(t *testing.T) {
		w := call(t, r, "POST", "/api/auth/refresh", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Refresh token required", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.refresh + "tampered"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid refresh token", errorOf(t, w))

		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.access})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.refresh})
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		newAccess := body["accessToken"].(string)
		newRefresh := body["refreshToken"].(string)

		w = call(t, r, "GET", "/api/users/me", newAccess, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		// the previous refresh token has been rotated away
		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.refresh})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Invalid refresh token", errorOf(t, w))

		alice.access, alice.refresh = newAccess, newRefresh
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w := call(t, r, "POST", "/api/auth/logout", "", map[string]string{"refreshToken": alice.refresh})
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "Logged out successfully", decodeBody(t, w)["message"])
		}

		w := call(t, r, "POST", "/api/auth/logout", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.refresh})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuthorizationGate(t *testing.T) {
	r := setupTestRouter(t)
	admin := setupAdmin(t, r)
	createUser(t, r, admin, "erin", "editor")
	createUser(t, r, admin, "victor", "viewer")
	editor := login(t, r, "erin", "longenough1")
	viewer := login(t, r, "victor", "longenough1")

	w := call(t, r, "POST", "/api/households", admin.access, map[string]string{"name": "Smith"})
	require.Equal(t, http.StatusCreated, w.Code)
	householdID := uint(decodeBody(t, w)["id"].(float64))
	household := fmt.Sprintf("/api/households/%d", householdID)

	t.Run("missing or invalid token", func(t *testing.T) {
		w := call(t, r, "GET", "/api/households", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Access token required", errorOf(t, w))

		w = call(t, r, "GET", "/api/households", "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid or expired token", errorOf(t, w))

		w = call(t, r, "GET", "/api/households", admin.refresh, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	adminOnly := []struct{ method, path string }{
		{"GET", "/api/users"},
		{"POST", "/api/users"},
		{"PUT", "/api/users/1"},
		{"DELETE", "/api/users/1"},
		{"GET", "/api/users/audit/log"},
		{"DELETE", household},
	}
	editorRoutes := []struct{ method, path string }{
		{"POST", "/api/households"},
		{"PUT", household},
		{"POST", household + "/members"},
		{"PUT", household + "/members/1"},
		{"DELETE", household + "/members/1"},
	}

	t.Run("editor is refused on admin routes", func(t *testing.T) {
		for _, rt := range adminOnly {
			w := call(t, r, rt.method, rt.path, editor.access, map[string]string{})
			assert.Equal(t, http.StatusForbidden, w.Code, rt.method+" "+rt.path)
			assert.Equal(t, "Insufficient permissions", errorOf(t, w))
		}
	})

	t.Run("viewer is refused on every mutation", func(t *testing.T) {
		for _, rt := range append(adminOnly, editorRoutes...) {
			w := call(t, r, rt.method, rt.path, viewer.access, map[string]string{})
			assert.Equal(t, http.StatusForbidden, w.Code, rt.method+" "+rt.path)
		}
	})

	t.Run("editor manages households", func(t *testing.T) {
		w := call(t, r, "POST", "/api/households", editor.access, map[string]string{"name": "Jones"})
		assert.Equal(t, http.StatusCreated, w.Code)

		w = call(t, r, "PUT", household, editor.access, map[string]string{"name": "Smith", "city": "Springfield"})
		assert.Equal(t, http.StatusOK, w.Code)

		w = call(t, r, "POST", household+"/members", editor.access, map[string]string{"first_name": "Homer"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("every role can read", func(t *testing.T) {
		for _, s := range []session{admin, editor, viewer} {
			for _, path := range []string{"/api/households", household, household + "/members", "/api/people", "/api/users/me"} {
				w := call(t, r, "GET", path, s.access, nil)
				assert.Equal(t, http.StatusOK, w.Code, path)
			}
		}
	})

	t.Run("everyone edits their own preferences", func(t *testing.T) {
		w := call(t, r, "PUT", "/api/users/me/preferences", viewer.access, map[string]interface{}{
			"preferences": map[string]interface{}{"locale": "fr"},
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Preferences updated successfully", decodeBody(t, w)["message"])

		w = call(t, r, "GET", "/api/users/me", viewer.access, nil)
		prefs := decodeBody(t, w)["preferences"].(map[string]interface{})
		assert.Equal(t, "fr", prefs["locale"])
	})
}

func TestUserRoutes(t *testing.T) {
	r := setupTestRouter(t)
	admin := setupAdmin(t, r)

	t.Run("create validation", func(t *testing.T) {
		w := call(t, r, "POST", "/api/users", admin.access, map[string]string{"username": "bob"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "All fields are required", errorOf(t, w))

		w = call(t, r, "POST", "/api/users", admin.access, map[string]string{
			"username": "bob", "email": "b@x.com", "password": "longenough1", "role": "superuser",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid role", errorOf(t, w))

		w = call(t, r, "POST", "/api/users", admin.access, map[string]string{
			"username": "alice", "email": "other@x.com", "password": "longenough1", "role": "viewer",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Username or email already exists", errorOf(t, w))
	})

	bobID := createUser(t, r, admin, "bob", "viewer")

	t.Run("list", func(t *testing.T) {
		w := call(t, r, "GET", "/api/users", admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var users []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0]["username"])
		assert.NotContains(t, users[0], "password_hash")
	})

	t.Run("update", func(t *testing.T) {
		path := fmt.Sprintf("/api/users/%d", bobID)

		w := call(t, r, "PUT", path, admin.access, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No fields to update", errorOf(t, w))

		w = call(t, r, "PUT", path, admin.access, map[string]string{"role": "editor", "password": "anotherpass"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "editor", decodeBody(t, w)["role"])
		login(t, r, "bob", "anotherpass")

		w = call(t, r, "PUT", "/api/users/9999", admin.access, map[string]string{"role": "viewer"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", errorOf(t, w))

		w = call(t, r, "PUT", "/api/users/abc", admin.access, map[string]string{"role": "viewer"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("self delete is refused", func(t *testing.T) {
		w := call(t, r, "DELETE", fmt.Sprintf("/api/users/%d", admin.id), admin.access, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot delete your own account", errorOf(t, w))
	})

	t.Run("delete", func(t *testing.T) {
		bob := login(t, r, "bob", "anotherpass")

		w := call(t, r, "DELETE", fmt.Sprintf("/api/users/%d", bobID), admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "User deleted successfully", decodeBody(t, w)["message"])

		w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": bob.refresh})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = call(t, r, "DELETE", fmt.Sprintf("/api/users/%d", bobID), admin.access, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("audit log", func(t *testing.T) {
		w := call(t, r, "GET", "/api/users/audit/log?limit=2", admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		pagination := body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(3), pagination["total"])
		assert.Equal(t, float64(2), pagination["limit"])
		assert.Equal(t, float64(2), pagination["pages"])

		logs := body["logs"].([]interface{})
		require.Len(t, logs, 2)
		latest := logs[0].(map[string]interface{})
		assert.Equal(t, "DELETE", latest["action"])
		assert.Equal(t, "user", latest["entity_type"])
		assert.Equal(t, "alice", latest["username"])
	})
}

func TestHouseholdRoutes(t *testing.T) {
	r := setupTestRouter(t)
	admin := setupAdmin(t, r)

	w := call(t, r, "POST", "/api/households", admin.access, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Household name is required", errorOf(t, w))

	w = call(t, r, "POST", "/api/households", admin.access, map[string]string{
		"name": "Simpson", "city": "Springfield", "postal_code": "49007",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody(t, w)
	assert.Equal(t, "#3b82f6", created["color_theme"])
	householdID := uint(created["id"].(float64))
	household := fmt.Sprintf("/api/households/%d", householdID)

	w = call(t, r, "POST", "/api/households", admin.access, map[string]string{"name": "Flanders", "city": "Springfield"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("members", func(t *testing.T) {
		w := call(t, r, "POST", "/api/households/9999/members", admin.access, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "First name is required", errorOf(t, w))

		w = call(t, r, "POST", "/api/households/9999/members", admin.access, map[string]string{"first_name": "Homer"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Household not found", errorOf(t, w))

		for _, name := range []string{"Marge", "Homer", "Bart"} {
			w = call(t, r, "POST", household+"/members", admin.access, map[string]string{
				"first_name": name, "last_name": "Simpson",
			})
			require.Equal(t, http.StatusCreated, w.Code)
		}
		bartID := uint(decodeBody(t, w)["id"].(float64))

		w = call(t, r, "PUT", fmt.Sprintf("%s/members/%d", household, bartID), admin.access, map[string]string{
			"first_name": "Bart", "last_name": "Simpson", "birthday": "1980-04-01",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1980-04-01", decodeBody(t, w)["birthday"])

		w = call(t, r, "PUT", fmt.Sprintf("%s/members/%d", household, 9999), admin.access, map[string]string{"first_name": "X"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Member not found", errorOf(t, w))

		w = call(t, r, "GET", household+"/members", admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var members []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
		require.Len(t, members, 3)
		assert.Equal(t, "Bart", members[0]["first_name"])

		w = call(t, r, "DELETE", fmt.Sprintf("%s/members/%d", household, bartID), admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Member deleted successfully", decodeBody(t, w)["message"])
	})

	t.Run("list and search", func(t *testing.T) {
		w := call(t, r, "GET", "/api/households?search=49007", admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		households := body["households"].([]interface{})
		require.Len(t, households, 1)
		first := households[0].(map[string]interface{})
		assert.Equal(t, "Simpson", first["name"])
		assert.Equal(t, float64(2), first["member_count"])

		w = call(t, r, "GET", "/api/households?page=1&limit=1", admin.access, nil)
		body = decodeBody(t, w)
		pagination := body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(2), pagination["total"])
		assert.Equal(t, float64(2), pagination["pages"])
	})

	t.Run("detail", func(t *testing.T) {
		w := call(t, r, "GET", household, admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Simpson", body["name"])
		assert.Len(t, body["members"], 2)

		w = call(t, r, "GET", "/api/households/9999", admin.access, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = call(t, r, "GET", "/api/households/abc", admin.access, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("people", func(t *testing.T) {
		w := call(t, r, "GET", "/api/people?sortBy=first_name&search=simpson", admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		people := decodeBody(t, w)["people"].([]interface{})
		require.Len(t, people, 2)
		first := people[0].(map[string]interface{})
		assert.Equal(t, "Homer", first["first_name"])
		assert.Equal(t, "Simpson", first["household_name"])
		assert.Equal(t, "Springfield", first["city"])
	})

	t.Run("update and delete", func(t *testing.T) {
		w := call(t, r, "PUT", household, admin.access, map[string]string{"name": "Simpson", "color_theme": "#ffcc00"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "#ffcc00", decodeBody(t, w)["color_theme"])

		w = call(t, r, "PUT", "/api/households/9999", admin.access, map[string]string{"name": "Nobody"})
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = call(t, r, "DELETE", household, admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Household deleted successfully", decodeBody(t, w)["message"])

		w = call(t, r, "GET", "/api/people", admin.access, nil)
		assert.Empty(t, decodeBody(t, w)["people"])
	})
}

func TestAccessPolicyCoversRegisteredRoutes(t *testing.T) {
	r := setupTestRouter(t)

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for key := range AccessPolicy {
		assert.True(t, registered[key], "policy entry %q does not match a route", key)
	}
}

func TestAuditKeepsMutationsOfDeletedUsers(t *testing.T) {
	r := setupTestRouter(t)
	admin := setupAdmin(t, r)
	edID := createUser(t, r, admin, "ed", "editor")
	ed := login(t, r, "ed", "longenough1")

	w := call(t, r, "DELETE", fmt.Sprintf("/api/users/%d", edID), admin.access, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// ed's access token stays valid until it expires
	w = call(t, r, "POST", "/api/households", ed.access, map[string]string{"name": "Ghost"})
	require.Equal(t, http.StatusCreated, w.Code)
	householdID := decodeBody(t, w)["id"].(float64)

	w = call(t, r, "GET", "/api/users/audit/log", admin.access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(3), body["pagination"].(map[string]interface{})["total"])

	latest := body["logs"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "CREATE", latest["action"])
	assert.Equal(t, "household", latest["entity_type"])
	assert.Equal(t, householdID, latest["entity_id"])
	assert.Nil(t, latest["user_id"])
	assert.Nil(t, latest["username"])
}

func TestListingsBeyondLastPage(t *testing.T) {
	r := setupTestRouter(t)
	admin := setupAdmin(t, r)

	w := call(t, r, "POST", "/api/households", admin.access, map[string]string{"name": "Simpson"})
	require.Equal(t, http.StatusCreated, w.Code)

	for _, path := range []string{
		"/api/households?page=461168601842738792&limit=20",
		"/api/people?page=461168601842738792&limit=20",
		"/api/users/audit/log?page=461168601842738792&limit=20",
	} {
		w := call(t, r, "GET", path, admin.access, nil)
		require.Equal(t, http.StatusOK, w.Code, path)

		body := decodeBody(t, w)
		pagination := body["pagination"].(map[string]interface{})
		assert.Equal(t, float64(107374183), pagination["page"], path)
		for _, key := range []string{"households", "people", "logs"} {
			if rows, ok := body[key]; ok {
				assert.Empty(t, rows, path)
			}
		}
	}
}

func TestLoginThrottleScope(t *testing.T) {
	blocking := true
	r := setupTestRouterWith(t, Dependencies{
		LoginThrottle: func(c *gin.Context) {
			if blocking {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
				return
			}
			c.Next()
		},
	})

	blocking = false
	alice := setupAdmin(t, r)
	blocking = true

	w := call(t, r, "POST", "/api/auth/login", "", map[string]string{"username": "alice", "password": "longenough1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = call(t, r, "POST", "/api/auth/setup", "", map[string]string{})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = call(t, r, "GET", "/api/auth/first-run", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, "POST", "/api/auth/refresh", "", map[string]string{"refreshToken": alice.refresh})
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decodeBody(t, w)["refreshToken"].(string)

	w = call(t, r, "POST", "/api/auth/logout", "", map[string]string{"refreshToken": refreshed})
	assert.Equal(t, http.StatusOK, w.Code)
}
