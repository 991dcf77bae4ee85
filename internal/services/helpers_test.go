package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"famli/internal/config"
	"famli/internal/logging"
	"famli/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	AccessSecret:  "test-access-secret",
	RefreshSecret: "test-refresh-secret",
	AccessTTL:     "1h",
	RefreshTTL:    "720h",
	SessionTTL:    "720h",
	Issuer:        "famli-test",
}

// setupTestDB opens a migrated sqlite database in a temporary directory
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Type:   "sqlite",
			SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "famli_test.db")},
		},
	}

	db, err := models.InitDB(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *gorm.DB
	clock    *testClock
	users    *GormCredentialStore
	tokens   *TokenIssuer
	sessions *SessionManager
	auth     *AuthService
	audit    *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithSessionTTL(t, config.DefaultSessionTTL)
}

func newTestEnvWithSessionTTL(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	clock := newTestClock()
	users := NewCredentialStore(db)
	tokens := NewTokenIssuer(testJWT).WithClock(clock.Now)
	sessions := NewSessionManager(db, tokens, users, ttl)

	return &testEnv{
		db:       db,
		clock:    clock,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		auth:     NewAuthService(users, sessions, bcrypt.MinCost),
		audit:    NewAuditService(db, nil, logging.Discard()),
	}
}

// createTestUser inserts a user with a hashed password
func createTestUser(t *testing.T, env *testEnv, username, password, role string) *models.User {
	t.Helper()

	hash, err := env.auth.HashPassword(password)
	require.NoError(t, err)

	user, err := env.users.Insert(context.Background(), username, username+"@example.com", hash, role)
	require.NoError(t, err)
	return user
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()

	var n int64
	q := db.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
