package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/callwave/callwave/pkg/domain"
)

// Manager reads and writes the signed-in session through a Store.
// It satisfies client.SessionStore.
type Manager struct {
	store Store
}

// NewManager wraps store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Tokens returns the stored token pair. A missing or unparsable expiry yields a
// zero ExpiresAt, which is treated as never expiring.
func (m *Manager) Tokens(ctx context.Context) (domain.Tokens, error) {
	var t domain.Tokens
	var err error
	if t.AccessToken, _, err = m.store.Get(ctx, KeyAccessToken); err != nil {
		return domain.Tokens{}, fmt.Errorf("session.Tokens: %w", err)
	}
	if t.RefreshToken, _, err = m.store.Get(ctx, KeyRefreshToken); err != nil {
		return domain.Tokens{}, fmt.Errorf("session.Tokens: %w", err)
	}
	raw, ok, err := m.store.Get(ctx, KeyTokenExpiry)
	if err != nil {
		return domain.Tokens{}, fmt.Errorf("session.Tokens: %w", err)
	}
	if ok && raw != "" {
		if exp, perr := time.Parse(time.RFC3339, raw); perr == nil {
			t.ExpiresAt = exp
		}
	}
	return t, nil
}

// SaveTokens replaces the stored token pair.
func (m *Manager) SaveTokens(ctx context.Context, t domain.Tokens) error {
	if err := m.store.Set(ctx, KeyAccessToken, t.AccessToken); err != nil {
		return fmt.Errorf("session.SaveTokens: %w", err)
	}
	if t.RefreshToken != "" {
		if err := m.store.Set(ctx, KeyRefreshToken, t.RefreshToken); err != nil {
			return fmt.Errorf("session.SaveTokens: %w", err)
		}
	}
	if t.ExpiresAt.IsZero() {
		if err := m.store.Delete(ctx, KeyTokenExpiry); err != nil {
			return fmt.Errorf("session.SaveTokens: %w", err)
		}
		return nil
	}
	if err := m.store.Set(ctx, KeyTokenExpiry, t.ExpiresAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("session.SaveTokens: %w", err)
	}
	return nil
}

// SignIn stores tokens and the user profile together.
func (m *Manager) SignIn(ctx context.Context, t domain.Tokens, u *domain.User) error {
	if err := m.SaveTokens(ctx, t); err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	return m.SaveUser(ctx, u)
}

// User returns the cached profile, or nil when none is stored.
func (m *Manager) User(ctx context.Context) (*domain.User, error) {
	raw, ok, err := m.store.Get(ctx, KeyUserData)
	if err != nil {
		return nil, fmt.Errorf("session.User: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("session.User: decode: %w", err)
	}
	return &u, nil
}

// SaveUser caches the profile.
func (m *Manager) SaveUser(ctx context.Context, u *domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session.SaveUser: encode: %w", err)
	}
	if err := m.store.Set(ctx, KeyUserData, string(data)); err != nil {
		return fmt.Errorf("session.SaveUser: %w", err)
	}
	return nil
}

// Authenticated reports whether an access token is present. Expiry is not
// checked; the client refreshes on demand.
func (m *Manager) Authenticated(ctx context.Context) bool {
	tok, ok, err := m.store.Get(ctx, KeyAccessToken)
	return err == nil && ok && tok != ""
}

// Clear removes every session key.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("session.Clear: %w", err)
	}
	return nil
}
