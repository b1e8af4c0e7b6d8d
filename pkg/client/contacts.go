package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/callwave/callwave/pkg/domain"
)

// CreateContactGroupRequest is the payload for creating a contact group.
type CreateContactGroupRequest struct {
	Name     string           `json:"name" validate:"required,max=100"`
	Contacts []domain.Contact `json:"contacts" validate:"required,min=1,dive"`
}

// ListContactGroups fetches the user's contact groups without their contacts.
func (c *Client) ListContactGroups(ctx context.Context) ([]domain.ContactGroup, error) {
	var groups []domain.ContactGroup
	if err := c.get(ctx, "/api/contact-groups", &groups); err != nil {
		return nil, fmt.Errorf("client.ListContactGroups: %w", err)
	}
	return groups, nil
}

// GetContactGroup fetches a group with its contacts.
func (c *Client) GetContactGroup(ctx context.Context, id string) (*domain.ContactGroup, error) {
	var g domain.ContactGroup
	if err := c.get(ctx, "/api/contact-groups/"+url.PathEscape(id), &g); err != nil {
		return nil, fmt.Errorf("client.GetContactGroup: %w", err)
	}
	return &g, nil
}

// CreateContactGroup creates a group from imported contacts.
func (c *Client) CreateContactGroup(ctx context.Context, req CreateContactGroupRequest) (*domain.ContactGroup, error) {
	var g domain.ContactGroup
	if err := c.post(ctx, "/api/contact-groups", req, &g); err != nil {
		return nil, fmt.Errorf("client.CreateContactGroup: %w", err)
	}
	return &g, nil
}
