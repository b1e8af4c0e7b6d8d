package domain

import "time"

// User is the signed-in account as returned by the backend.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Plan      string    `json:"plan,omitempty"`
	Credits   int       `json:"credits,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
