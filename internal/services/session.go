package services

import (
	"context"
	"errors"
	"time"

	"famli/internal/models"

	"gorm.io/gorm"
)

// SessionManager stores one row per login and rotates its token pair on
// refresh. Only the stored refresh token authorizes rotation.
type SessionManager struct {
	db     *gorm.DB
	tokens *TokenIssuer
	users  CredentialStore
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(db *gorm.DB, tokens *TokenIssuer, users CredentialStore, ttl time.Duration) *SessionManager {
	return &SessionManager{
		db:     db,
		tokens: tokens,
		users:  users,
		ttl:    ttl,
		now:    tokens.now,
	}
}

// IssueTokens mints a pair without persisting anything
func (m *SessionManager) IssueTokens(identity Identity) (TokenPair, error) {
	return m.tokens.IssueTokens(identity)
}

// VerifyAccessToken is the stateless check used by the authorization gate
func (m *SessionManager) VerifyAccessToken(token string) (*AccessClaims, error) {
	return m.tokens.VerifyAccessToken(token)
}

// CreateSession issues a pair and records it with an absolute expiry
func (m *SessionManager) CreateSession(ctx context.Context, identity Identity) (TokenPair, error) {
	pair, err := m.tokens.IssueTokens(identity)
	if err != nil {
		return TokenPair{}, err
	}

	session := &models.Session{
		UserID:       identity.ID,
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    m.now().UTC().Add(m.ttl),
	}
	if err := m.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, err
	}

	return pair, nil
}

// RefreshSession exchanges a live refresh token for a new pair. The session
// row keeps its id and expiry; only the token columns change. The update is
// conditioned on the old refresh token, so of two concurrent refreshes with
// the same token exactly one succeeds and the other gets ErrSessionNotFound.
func (m *SessionManager) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, error) {
	if _, err := m.tokens.VerifyRefreshToken(refreshToken); err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	db := m.db.WithContext(ctx)

	var session models.Session
	err := db.Where("refresh_token = ? AND expires_at > ?", refreshToken, m.now().UTC()).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrSessionNotFound
		}
		return TokenPair{}, err
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := m.tokens.IssueTokens(Identity{ID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return TokenPair{}, err
	}

	res := db.Model(&models.Session{}).
		Where("id = ? AND refresh_token = ?", session.ID, refreshToken).
		Updates(map[string]interface{}{
			"token":         pair.AccessToken,
			"refresh_token": pair.RefreshToken,
		})
	if res.Error != nil {
		return TokenPair{}, res.Error
	}
	if res.RowsAffected == 0 {
		return TokenPair{}, ErrSessionNotFound
	}

	return pair, nil
}

// RevokeSession deletes the session holding refreshToken. Unknown tokens are
// not an error.
func (m *SessionManager) RevokeSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return m.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Delete(&models.Session{}).Error
}

// RevokeAllForUser removes every session of a user
func (m *SessionManager) RevokeAllForUser(ctx context.Context, userID uint) error {
	return m.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error
}

// PurgeExpired removes sessions whose refresh window has closed
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	res := m.db.WithContext(ctx).Where("expires_at <= ?", m.now().UTC()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
