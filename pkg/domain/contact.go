package domain

import "time"

// Contact is a single dialable entry in a contact group.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"max=120"`
	Phone string `json:"phone" validate:"required,phone"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Label returns the contact's name, or its phone number when unnamed.
func (c Contact) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Phone
}

// ContactGroup is a named list of contacts a campaign dials through.
type ContactGroup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactCount int       `json:"contact_count"`
	Contacts     []Contact `json:"contacts,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
