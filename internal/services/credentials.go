package services

import (
	"context"
	"errors"
	"strings"

	"famli/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialStore persists user identities. Lookups return ErrUserNotFound
// when no row matches.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	Insert(ctx context.Context, username, email, passwordHash, role string) (*models.User, error)
	// InsertFirst inserts only while no user exists, otherwise ErrSetupCompleted.
	InsertFirst(ctx context.Context, username, email, passwordHash, role string) (*models.User, error)
	UpdatePreferences(ctx context.Context, id uint, prefs models.JSONMap) error
	// CountUsers is zero only before the first account is created.
	CountUsers(ctx context.Context) (int64, error)
}

type GormCredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

func (s *GormCredentialStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormCredentialStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Insert creates a user row. Duplicate usernames or emails yield ErrConflict.
func (s *GormCredentialStore) Insert(ctx context.Context, username, email, passwordHash, role string) (*models.User, error) {
	user := &models.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Role:         role,
		Preferences:  models.JSONMap{},
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return user, nil
}

// InsertFirst checks that the table is empty and inserts in one transaction.
// On MySQL the count takes a locking read so a concurrent setup waits for it;
// SQLite runs on a single connection and serializes the transactions itself.
func (s *GormCredentialStore) InsertFirst(ctx context.Context, username, email, passwordHash, role string) (*models.User, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count := tx.Model(&models.User{})
		if tx.Dialector.Name() == "mysql" {
			count = count.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var n int64
		if err := count.Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSetupCompleted
		}

		var err error
		user, err = NewCredentialStore(tx).Insert(ctx, username, email, passwordHash, role)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *GormCredentialStore) UpdatePreferences(ctx context.Context, id uint, prefs models.JSONMap) error {
	if prefs == nil {
		prefs = models.JSONMap{}
	}
	res := s.db.WithContext(ctx).Model(&models.User{ID: id}).Update("preferences", prefs)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *GormCredentialStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
