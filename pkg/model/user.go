// Package model defines the core domain types for the chat server.
package model

import (
	"errors"
	"fmt"
	"time"
)

// MaxNameLength bounds a display name in bytes.
const MaxNameLength = 32

var (
	ErrNameEmpty        = errors.New("name must not be empty")
	ErrNameTooLong      = fmt.Errorf("name must not exceed %d characters", MaxNameLength)
	ErrNameInvalidChars = errors.New("name must contain only alphanumeric characters, underscores, or hyphens")
)

// User is a participant record as kept by the user store. A user exists from
// the first time the name joins; it is not an account and carries no
// credentials.
type User struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// ValidateName checks that a display name is 1-32 ASCII alphanumeric,
// underscore, or hyphen characters.
func ValidateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return ErrNameInvalidChars
		}
	}
	return nil
}
