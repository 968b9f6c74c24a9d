// Package datastore persists user records. The session registry needs only a
// minimal lookup contract: find-or-create a user by name, and membership
// checks. The default backend is SQLite; Memory serves tests.
package datastore

import "github.com/chatboat/chatboat/pkg/model"

// UserStore is the identity collaborator consulted on join.
type UserStore interface {
	// Exists reports whether a user with this name has ever been recorded.
	Exists(name string) (bool, error)

	// Record returns the user with this name, creating it first if needed.
	Record(name string) (*model.User, error)

	// ListUsers returns all recorded users.
	ListUsers() ([]model.User, error)

	Close() error
}

var (
	_ UserStore = (*SQL)(nil)
	_ UserStore = (*Memory)(nil)
)
