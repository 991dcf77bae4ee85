package services

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrConflict           = errors.New("username or email already exists")
	ErrSetupCompleted     = errors.New("setup already completed")
	ErrSelfDelete         = errors.New("cannot delete your own account")

	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionNotFound = errors.New("session not found")

	ErrHouseholdNotFound = errors.New("household not found")
	ErrMemberNotFound    = errors.New("member not found")
)

// ValidationError reports malformed or missing input. Message is shown to
// the client as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// isUniqueViolation recognises unique-constraint failures from either driver
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return false
}

// isForeignKeyViolation recognises a reference to a row that no longer exists
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1452 {
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return true
	}
	return false
}
