// Package memory provides an in-process UserRepository for tests, demos and
// single-node tools.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore"
)

// Users is a map-backed repository. Email lookups are case-insensitive;
// usernames match exactly. It is safe for concurrent use.
type Users struct {
	mu         sync.RWMutex
	byID       map[string]*authcore.User
	byEmail    map[string]string
	byUsername map[string]string
	byUniqueID map[string]string
	now        func() time.Time
}

func NewUsers() *Users {
	return &Users{
		byID:       make(map[string]*authcore.User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byUniqueID: make(map[string]string),
		now:        time.Now,
	}
}

// Seed inserts u as-is, keeping PasswordHash verbatim. It is how legacy
// plaintext credentials are loaded in tests. An empty ID is generated.
func (s *Users) Seed(u authcore.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.insertLocked(&u)
	return u.ID
}

func (s *Users) insertLocked(u *authcore.User) {
	s.byID[u.ID] = u
	s.byEmail[emailKey(u.Email)] = u.ID
	if u.Username != "" {
		s.byUsername[u.Username] = u.ID
	}
	if u.UniqueID != "" {
		s.byUniqueID[u.UniqueID] = u.ID
	}
}

// Get returns a copy of the stored user by id.
func (s *Users) Get(id string) (authcore.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return authcore.User{}, false
	}
	return *u, true
}

func (s *Users) FindByEmailOrUsername(_ context.Context, identifier string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byEmail[emailKey(identifier)]; ok {
		return s.copyLocked(id), nil
	}
	if id, ok := s.byUsername[identifier]; ok {
		return s.copyLocked(id), nil
	}
	return nil, authcore.ErrAccountNotFound
}

func (s *Users) FindByEmail(_ context.Context, email string) (*authcore.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, authcore.ErrAccountNotFound
	}
	return s.copyLocked(id), nil
}

func (s *Users) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[emailKey(email)]
	return ok, nil
}

func (s *Users) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[username]
	return ok, nil
}

func (s *Users) ExistsByUniqueID(_ context.Context, uniqueID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUniqueID[uniqueID]
	return ok, nil
}

// Create enforces the same unique constraints a database would.
func (s *Users) Create(_ context.Context, nu authcore.NewUser) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[emailKey(nu.Email)]; ok {
		return "", &authcore.DuplicateError{Field: "email"}
	}
	if _, ok := s.byUsername[nu.Username]; ok && nu.Username != "" {
		return "", &authcore.DuplicateError{Field: "username"}
	}
	if _, ok := s.byUniqueID[nu.UniqueID]; ok && nu.UniqueID != "" {
		return "", &authcore.DuplicateError{Field: "unique_id"}
	}

	u := &authcore.User{
		ID:           uuid.NewString(),
		Email:        nu.Email,
		Username:     nu.Username,
		Name:         nu.Name,
		UniqueID:     nu.UniqueID,
		Function:     nu.Function,
		Role:         nu.Role,
		PasswordHash: nu.PasswordHash,
		CreatedBy:    nu.CreatedBy,
		CreatedAt:    s.now().UTC(),
	}
	s.insertLocked(u)
	return u.ID, nil
}

func (s *Users) UpdatePasswordHash(_ context.Context, email, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	s.byID[id].PasswordHash = hash
	return nil
}

func (s *Users) SetMFAEnabled(_ context.Context, userID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return authcore.ErrAccountNotFound
	}
	u.MFAEnabled = enabled
	return nil
}

func (s *Users) copyLocked(id string) *authcore.User {
	u := *s.byID[id]
	return &u
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
