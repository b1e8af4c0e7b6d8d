package domain

import (
	"testing"
	"time"
)

func TestTokensExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		expires time.Time
		leeway  time.Duration
		want    bool
	}{
		{"unknown expiry", time.Time{}, 0, false},
		{"future", now.Add(time.Minute), 0, false},
		{"past", now.Add(-time.Second), 0, true},
		{"exactly now", now, 0, true},
		{"inside leeway", now.Add(5 * time.Second), 10 * time.Second, true},
		{"outside leeway", now.Add(20 * time.Second), 10 * time.Second, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := Tokens{AccessToken: "a", ExpiresAt: tt.expires}
			if got := tok.Expired(now, tt.leeway); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusCompleted, true},
		{StatusStopped, true},
		{StatusCalling, false},
		{StatusInProgress, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := Terminal(tt.status); got != tt.want {
				t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	var nilUser *User
	if got := nilUser.DisplayName(); got != "" {
		t.Errorf("nil DisplayName() = %q, want empty", got)
	}
	u := &User{Email: "ops@acme.test"}
	if got := u.DisplayName(); got != "ops@acme.test" {
		t.Errorf("DisplayName() = %q, want email fallback", got)
	}
	u.Name = "Ada"
	if got := u.DisplayName(); got != "Ada" {
		t.Errorf("DisplayName() = %q, want %q", got, "Ada")
	}
}
