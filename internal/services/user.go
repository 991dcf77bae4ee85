package services

import (
	"context"
	"strings"

	"famli/internal/models"

	"gorm.io/gorm"
)

type UserService struct {
	db       *gorm.DB
	users    CredentialStore
	auth     *AuthService
	sessions *SessionManager
	audit    *AuditService
}

func NewUserService(db *gorm.DB, users CredentialStore, auth *AuthService, sessions *SessionManager, audit *AuditService) *UserService {
	return &UserService{db: db, users: users, auth: auth, sessions: sessions, audit: audit}
}

// GetUsers returns all users ordered by username
func (s *UserService) GetUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns a specific user by ID
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) UpdatePreferences(ctx context.Context, id uint, prefs models.JSONMap) error {
	return s.users.UpdatePreferences(ctx, id, prefs)
}

type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// CreateUser creates an account on behalf of actorID
func (s *UserService) CreateUser(ctx context.Context, actorID uint, in CreateUserInput) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || in.Role == "" {
		return nil, invalid("All fields are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	if !models.ValidRole(in.Role) {
		return nil, invalid("Invalid role")
	}

	hash, err := s.auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Insert(ctx, in.Username, in.Email, hash, in.Role)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionCreate, models.EntityUser, user.ID, models.JSONMap{
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

// UpdateUserInput carries a partial update; empty fields are left unchanged.
type UpdateUserInput struct {
	Username string
	Email    string
	Role     string
	Password string
}

// UpdateUser applies a partial update. A new password is re-hashed.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id uint, in UpdateUserInput) (*models.User, error) {
	updates := map[string]interface{}{}

	if username := strings.TrimSpace(in.Username); username != "" {
		updates["username"] = username
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		updates["email"] = email
	}
	if in.Role != "" {
		if !models.ValidRole(in.Role) {
			return nil, invalid("Invalid role")
		}
		updates["role"] = in.Role
	}
	if in.Password != "" {
		if err := checkPassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := s.auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return nil, invalid("No fields to update")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	// Reload so the response reflects what was stored
	user, err = s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, models.ActionUpdate, models.EntityUser, user.ID, models.JSONMap{
		"username": user.Username,
		"role":     user.Role,
	})
	return user, nil
}

// DeleteUser removes a user and its sessions. Audit entries written by the
// user are kept with a NULL user_id. Deleting one's own account is refused
// unconditionally.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrSelfDelete
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)

	if err := s.sessions.RevokeAllForUser(ctx, id); err != nil {
		return err
	}
	if err := db.Model(&models.AuditEntry{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
		return err
	}

	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.audit.Record(ctx, actorID, models.ActionDelete, models.EntityUser, id, models.JSONMap{
		"username": user.Username,
	})
	return nil
}
