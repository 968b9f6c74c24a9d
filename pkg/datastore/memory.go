package datastore

import (
	"sync"
	"time"

	"github.com/chatboat/chatboat/pkg/model"
)

// Memory is an in-memory UserStore for tests and ephemeral servers.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*model.User
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, users: make(map[string]*model.User)}
}

func (m *Memory) Exists(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[name]
	return ok, nil
}

func (m *Memory) Record(name string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[name]; ok {
		cp := *u
		return &cp, nil
	}
	u := &model.User{ID: m.nextID, Name: name, CreatedAt: time.Now().UTC()}
	m.nextID++
	m.users[name] = u
	cp := *u
	return &cp, nil
}

func (m *Memory) ListUsers() ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, nil
}

func (m *Memory) Close() error {
	return nil
}
