package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/callwave/callwave/pkg/domain"
)

// WorkflowRequest is the payload for creating or updating a workflow.
type WorkflowRequest struct {
	Name        string             `json:"name" validate:"required,max=80"`
	Description string             `json:"description,omitempty" validate:"max=500"`
	Greeting    string             `json:"greeting" validate:"required"`
	IVROptions  []domain.IVROption `json:"ivr_options,omitempty" validate:"dive"`
}

// ListWorkflows fetches all workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	var wfs []domain.Workflow
	if err := c.get(ctx, "/api/workflows", &wfs); err != nil {
		return nil, fmt.Errorf("client.ListWorkflows: %w", err)
	}
	return wfs, nil
}

// GetWorkflow fetches a single workflow by ID.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := c.get(ctx, "/api/workflows/"+url.PathEscape(id), &wf); err != nil {
		return nil, fmt.Errorf("client.GetWorkflow: %w", err)
	}
	return &wf, nil
}

// CreateWorkflow creates a new workflow.
func (c *Client) CreateWorkflow(ctx context.Context, req WorkflowRequest) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := c.post(ctx, "/api/workflows", req, &wf); err != nil {
		return nil, fmt.Errorf("client.CreateWorkflow: %w", err)
	}
	return &wf, nil
}

// UpdateWorkflow replaces a workflow's fields.
func (c *Client) UpdateWorkflow(ctx context.Context, id string, req WorkflowRequest) (*domain.Workflow, error) {
	var wf domain.Workflow
	if err := c.doRequest(ctx, http.MethodPut, "/api/workflows/"+url.PathEscape(id), req, &wf); err != nil {
		return nil, fmt.Errorf("client.UpdateWorkflow: %w", err)
	}
	return &wf, nil
}

// DeleteWorkflow deletes a workflow and its documents.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/workflows/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.DeleteWorkflow: %w", err)
	}
	return nil
}

// --- Workflow documents ---

// ListWorkflowDocuments fetches the documents attached to a workflow.
func (c *Client) ListWorkflowDocuments(ctx context.Context, workflowID string) ([]domain.WorkflowDocument, error) {
	var docs []domain.WorkflowDocument
	if err := c.get(ctx, "/api/workflows/"+url.PathEscape(workflowID)+"/documents", &docs); err != nil {
		return nil, fmt.Errorf("client.ListWorkflowDocuments: %w", err)
	}
	return docs, nil
}

// UploadWorkflowDocument uploads r as a multipart file named fileName.
// The body is buffered so it can be resent after a token refresh.
func (c *Client) UploadWorkflowDocument(ctx context.Context, workflowID, fileName string, r io.Reader) (*domain.WorkflowDocument, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("client.UploadWorkflowDocument: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("client.UploadWorkflowDocument: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client.UploadWorkflowDocument: %w", err)
	}

	p := &payload{contentType: mw.FormDataContentType(), data: buf.Bytes()}
	var doc domain.WorkflowDocument
	path := "/api/workflows/" + url.PathEscape(workflowID) + "/documents"
	if err := c.send(ctx, http.MethodPost, path, p, &doc, true); err != nil {
		return nil, fmt.Errorf("client.UploadWorkflowDocument: %w", err)
	}
	return &doc, nil
}

// DeleteWorkflowDocument removes a document from a workflow.
func (c *Client) DeleteWorkflowDocument(ctx context.Context, workflowID, docID string) error {
	path := "/api/workflows/" + url.PathEscape(workflowID) + "/documents/" + url.PathEscape(docID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("client.DeleteWorkflowDocument: %w", err)
	}
	return nil
}
