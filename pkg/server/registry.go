package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chatboat/chatboat/pkg/datastore"
)

// ErrNameTaken reports a join attempt with a name that is already online.
var ErrNameTaken = errors.New("registry: name already taken")

// Registry is the single source of truth for who is online. Mutation is
// serialized under one mutex so two concurrent joins with the same name can
// never both succeed.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	users      datastore.UserStore // may be nil; then joins are not recorded
	outboxSize int
}

// NewRegistry creates an empty registry. Joined names are recorded in users
// (find-or-create) when it is non-nil.
func NewRegistry(users datastore.UserStore, outboxSize int) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		users:      users,
		outboxSize: outboxSize,
	}
}

// Join registers a new session for name. It fails with ErrNameTaken when the
// name is already online; the check, the user-store record, and the insert
// happen under one lock.
func (r *Registry) Join(name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if r.users != nil {
		if _, err := r.users.Record(name); err != nil {
			return nil, fmt.Errorf("registry: record user: %w", err)
		}
	}

	s := newSession(name, r.outboxSize)
	r.sessions[name] = s
	return s, nil
}

// Leave removes name from the registry. Removing an absent name is a no-op.
func (r *Registry) Leave(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

// Lookup returns the session for name, or nil.
func (r *Registry) Lookup(name string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[name]
}

// List returns a snapshot of the online names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	return names
}

// All returns a snapshot of the active sessions.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
