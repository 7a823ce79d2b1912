package validation

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalid помечает все ошибки валидации
var ErrInvalid = errors.New("invalid input")

// usernamePattern: латиница, цифры, '_', '.', '-'
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 64
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt учитывает только первые 72 байта
)

// ValidateUsername checks the replication account name.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username cannot be empty", ErrInvalid)
	case len(username) < MinUsernameLen:
		return fmt.Errorf("%w: username must be at least %d characters long", ErrInvalid, MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return fmt.Errorf("%w: username must not exceed %d characters", ErrInvalid, MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username can only contain letters, digits, '_', '.' and '-'", ErrInvalid)
	}
	return nil
}

// ValidatePassword checks the replication account password.
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return fmt.Errorf("%w: password cannot be empty", ErrInvalid)
	case len(password) < MinPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalid, MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return fmt.Errorf("%w: password must not exceed %d bytes", ErrInvalid, MaxPasswordLen)
	}
	return nil
}
