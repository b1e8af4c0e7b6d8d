package domain

import "time"

// Workflow is the script a campaign plays to each answered call.
// Greeting and IVR options are rendered by the backend's voice engine; the
// dashboard only edits and displays them.
type Workflow struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Greeting    string      `json:"greeting,omitempty"`
	IVROptions  []IVROption `json:"ivr_options,omitempty"`
	Documents   int         `json:"document_count,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IVROption maps a keypad digit to a backend action.
type IVROption struct {
	Digit  string `json:"digit" validate:"required,len=1"`
	Label  string `json:"label" validate:"required"`
	Action string `json:"action" validate:"required"`
}

// WorkflowDocument is a reference file attached to a workflow.
type WorkflowDocument struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	FileName   string    `json:"file_name"`
	Size       int64     `json:"size"`
	URL        string    `json:"url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
