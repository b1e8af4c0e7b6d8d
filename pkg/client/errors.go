package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// ErrSessionExpired is returned when the access token could not be refreshed.
// The stored session has been cleared by the time it is returned.
var ErrSessionExpired = errors.New("session expired")

// APIError represents a non-2xx HTTP response from the API.
type APIError struct {
	StatusCode int
	Message    string
	// Errors holds per-field messages from validation failures.
	Errors map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == code
	}
	return false
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return "Your session has expired. Please sign in again."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return http.StatusText(apiErr.StatusCode)
	}
	return err.Error()
}

// readAPIError normalizes an error body. The server sends either
// {"message": ..., "errors": {...}} or {"error": ...}; field errors may be a
// string or a list of strings.
func readAPIError(resp *http.Response) error {
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
	if readErr != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
	}
	var body struct {
		Message string                     `json:"message"`
		Error   string                     `json:"error"`
		Errors  map[string]json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(respBody, &body) != nil {
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: body.Message}
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	if len(body.Errors) > 0 {
		apiErr.Errors = make(map[string]string, len(body.Errors))
		for field, raw := range body.Errors {
			apiErr.Errors[field] = fieldMessage(raw)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = firstFieldError(apiErr.Errors)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func fieldMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	return string(raw)
}

func firstFieldError(errs map[string]string) string {
	if len(errs) == 0 {
		return ""
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return errs[fields[0]]
}
