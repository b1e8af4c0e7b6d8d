// Package session holds the signed-in user's credentials and profile.
//
// Storage is a flat key-value Store, the same shape as browser local storage,
// so the keys are stable across backends. Manager is the only code that reads
// or writes those keys.
package session

import (
	"context"
	"errors"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry"
	KeyUserData     = "user_data"
)

// AllKeys lists every key Manager writes.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry, KeyUserData}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("session store closed")

// Store is a string key-value store.
// Implementations: FileStore, MemoryStore, RedisStore.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
