package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/callwave/callwave/pkg/domain"
)

func TestStores(t *testing.T) {
	ctx := context.Background()
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"file": func(t *testing.T) Store {
			return NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))
		},
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get missing = ok %v, err %v", ok, err)
			}
			if err := s.Set(ctx, "a", "1"); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "b", "2"); err != nil {
				t.Fatal(err)
			}
			v, ok, err := s.Get(ctx, "a")
			if err != nil || !ok || v != "1" {
				t.Fatalf("Get a = %q %v %v", v, ok, err)
			}
			if err := s.Delete(ctx, "a", "nope"); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := s.Get(ctx, "a"); ok {
				t.Error("a should be deleted")
			}
			if v, _, _ := s.Get(ctx, "b"); v != "2" {
				t.Errorf("b = %q, want 2", v)
			}
			if err := s.Close(); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, "c", "3"); err != ErrClosed {
				t.Errorf("Set after Close = %v, want ErrClosed", err)
			}
		})
	}
}

func TestFileStorePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)
	if err := s.Set(context.Background(), KeyAccessToken, "tok"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	// A second store on the same path sees the value.
	v, ok, err := NewFileStore(path).Get(context.Background(), KeyAccessToken)
	if err != nil || !ok || v != "tok" {
		t.Errorf("reopen Get = %q %v %v", v, ok, err)
	}
}

func TestFileStoreDeleteLastKeyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)
	ctx := context.Background()
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file should be removed, stat err = %v", err)
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewFileStore(path).Get(context.Background(), "k"); err == nil {
		t.Error("expected decode error")
	}
}

func TestManagerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	if m.Authenticated(ctx) {
		t.Error("empty store should not be authenticated")
	}
	u, err := m.User(ctx)
	if err != nil || u != nil {
		t.Fatalf("User on empty store = %v, %v", u, err)
	}

	exp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = m.SignIn(ctx, domain.Tokens{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: exp},
		&domain.User{ID: "u7", Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if !m.Authenticated(ctx) {
		t.Error("should be authenticated after SignIn")
	}

	tok, err := m.Tokens(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "a1" || tok.RefreshToken != "r1" || !tok.ExpiresAt.Equal(exp) {
		t.Errorf("Tokens = %+v", tok)
	}
	raw, _, _ := m.Store().Get(ctx, KeyTokenExpiry)
	if raw != "2026-03-01T12:00:00Z" {
		t.Errorf("token_expiry = %q", raw)
	}

	u, err = m.User(ctx)
	if err != nil || u == nil || u.Name != "Ada" || u.ID != "u7" {
		t.Fatalf("User = %+v, %v", u, err)
	}

	// Refresh without a rotated refresh token keeps the old one.
	if err := m.SaveTokens(ctx, domain.Tokens{AccessToken: "a2"}); err != nil {
		t.Fatal(err)
	}
	tok, _ = m.Tokens(ctx)
	if tok.AccessToken != "a2" || tok.RefreshToken != "r1" || !tok.ExpiresAt.IsZero() {
		t.Errorf("after SaveTokens = %+v", tok)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	for _, k := range AllKeys {
		if _, ok, _ := m.Store().Get(ctx, k); ok {
			t.Errorf("%s survived Clear", k)
		}
	}
}

func TestManagerBadExpiryIgnored(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, KeyAccessToken, "a")
	_ = s.Set(ctx, KeyTokenExpiry, "yesterday")
	tok, err := NewManager(s).Tokens(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !tok.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero", tok.ExpiresAt)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore(context.Background(), "not-a-url://", "x"); err == nil {
		t.Error("expected parse error")
	}
}

func TestHashKey(t *testing.T) {
	if got := hashKey(""); got != "callwave:session:default" {
		t.Errorf("hashKey(\"\") = %q", got)
	}
	if got := hashKey("work"); got != "callwave:session:work" {
		t.Errorf("hashKey(work) = %q", got)
	}
}
