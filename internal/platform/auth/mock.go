package auth

import (
	"context"
	"sync"
)

// MockVerifier provides fake token verification for tests. When Users is set,
// the bearer token selects the user, which lets one test act as several
// callers.
type MockVerifier struct {
	User  *User
	Users map[string]*User
	Error error

	mu    sync.Mutex
	calls int
}

// Verify returns the configured user or error.
func (m *MockVerifier) Verify(_ context.Context, token string) (*User, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Users != nil {
		u, ok := m.Users[token]
		if !ok {
			return nil, ErrInvalidToken
		}
		return u, nil
	}
	return m.User, nil
}

// Calls reports how many tokens were verified.
func (m *MockVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// TestUser returns a standard test user.
func TestUser() *User {
	return &User{
		UID:           "test-user-123",
		Email:         "test@example.com",
		EmailVerified: true,
		Name:          "Jane Doe",
	}
}

var _ Verifier = (*MockVerifier)(nil)
