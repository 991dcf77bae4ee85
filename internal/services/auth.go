package services

import (
	"context"
	"errors"
	"strings"

	"famli/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

type AuthService struct {
	users      CredentialStore
	sessions   *SessionManager
	bcryptCost int
}

func NewAuthService(users CredentialStore, sessions *SessionManager, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, sessions: sessions, bcryptCost: bcryptCost}
}

// HashPassword hashes a password using bcrypt
func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	return string(bytes), err
}

// VerifyPassword verifies a password against a hash
func (s *AuthService) VerifyPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// IsFirstRun reports whether no account exists yet
func (s *AuthService) IsFirstRun(ctx context.Context) (bool, error) {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

type SetupInput struct {
	Username string
	Email    string
	Password string
}

// Setup creates the initial admin account and logs it in. It is refused as
// soon as any user exists, before the payload is looked at.
func (s *AuthService) Setup(ctx context.Context, in SetupInput) (*models.User, TokenPair, error) {
	firstRun, err := s.IsFirstRun(ctx)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if !firstRun {
		return nil, TokenPair{}, ErrSetupCompleted
	}

	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, TokenPair{}, invalid("All fields are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, TokenPair{}, err
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}

	// the first-run check is repeated inside the insert transaction
	user, err := s.users.InsertFirst(ctx, in.Username, in.Email, hash, models.RoleAdmin)
	if err != nil {
		return nil, TokenPair{}, err
	}

	pair, err := s.sessions.CreateSession(ctx, identityOf(user))
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Login verifies credentials and opens a new session. Unknown usernames and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, TokenPair, error) {
	if username == "" || password == "" {
		return nil, TokenPair{}, invalid("Username and password are required")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	if !s.VerifyPassword(user.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.sessions.CreateSession(ctx, identityOf(user))
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, invalid("Refresh token required")
	}
	return s.sessions.RefreshSession(ctx, refreshToken)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeSession(ctx, refreshToken)
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return invalid("Password must be at least 8 characters")
	}
	return nil
}

func identityOf(user *models.User) Identity {
	return Identity{ID: user.ID, Username: user.Username, Role: user.Role}
}
