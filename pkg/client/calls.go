package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/callwave/callwave/pkg/domain"
)

// StartCallSessionRequest picks the contact group to dial and the workflow to play.
type StartCallSessionRequest struct {
	ContactGroupID string `json:"contact_group_id" validate:"required"`
	WorkflowID     string `json:"workflow_id" validate:"required"`
}

// StartCallSession starts a campaign run.
func (c *Client) StartCallSession(ctx context.Context, req StartCallSessionRequest) (*domain.CallSession, error) {
	var s domain.CallSession
	if err := c.post(ctx, "/api/calls/start", req, &s); err != nil {
		return nil, fmt.Errorf("client.StartCallSession: %w", err)
	}
	return &s, nil
}

// StopCallSession asks the backend to stop a running campaign.
func (c *Client) StopCallSession(ctx context.Context, sessionID int64) error {
	path := "/api/calls/" + strconv.FormatInt(sessionID, 10) + "/stop"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("client.StopCallSession: %w", err)
	}
	return nil
}

// CallHistory fetches a page of call records, newest first. Pages start at 1.
func (c *Client) CallHistory(ctx context.Context, page, limit int) (*domain.CallHistoryPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var p domain.CallHistoryPage
	if err := c.get(ctx, "/api/calls/history?"+params.Encode(), &p); err != nil {
		return nil, fmt.Errorf("client.CallHistory: %w", err)
	}
	return &p, nil
}
