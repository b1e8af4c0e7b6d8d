package devserver

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/validate"
	"github.com/callwave/callwave/pkg/client"
	"github.com/callwave/callwave/pkg/domain"
)

const maxUploadSize = 10 << 20

// --- Calls ---

func (s *Server) handleStartCalls(w http.ResponseWriter, r *http.Request) {
	var req client.StartCallSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	group, ok := s.store.group(req.ContactGroupID)
	if !ok {
		writeError(w, http.StatusNotFound, "contact group not found")
		return
	}
	if len(group.Contacts) == 0 {
		writeError(w, http.StatusBadRequest, "contact group is empty")
		return
	}
	wf, ok := s.store.workflow(req.WorkflowID)
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &campaign{
		id:       s.store.newSessionID(),
		group:    group,
		workflow: wf,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.campaigns.add(c)
	go s.runCampaign(ctx, c)

	writeJSON(w, http.StatusCreated, domain.CallSession{
		SessionID:  c.id,
		TotalCalls: len(group.Contacts),
		Status:     domain.StatusInProgress,
	})
}

func (s *Server) handleStopCalls(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	c, ok := s.campaigns.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "call session not running")
		return
	}
	c.cancel()
	<-c.done
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCallHistory(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	writeJSON(w, http.StatusOK, s.store.history(page, limit))
}

// --- Contact groups ---

func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listGroups())
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, ok := s.store.group(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "contact group not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req client.CreateContactGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	g := s.store.createGroup(req.Name, req.Contacts)
	s.log.Info("contact group created", zap.String("group_id", g.ID), zap.Int("contacts", g.ContactCount))
	writeJSON(w, http.StatusCreated, g)
}

// --- Workflows ---

func (s *Server) handleListWorkflows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listWorkflows())
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, ok := s.store.workflow(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req client.WorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	wf := s.store.saveWorkflow(workflowFrom("", req))
	writeJSON(w, http.StatusCreated, wf)
}

func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.store.workflow(id); !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	var req client.WorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.saveWorkflow(workflowFrom(id, req)))
}

func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if !s.store.deleteWorkflow(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func workflowFrom(id string, req client.WorkflowRequest) domain.Workflow {
	return domain.Workflow{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Greeting:    req.Greeting,
		IVROptions:  req.IVROptions,
	}
}

// --- Workflow documents ---

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, ok := s.store.listDocuments(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message: "validation failed",
			Errors:  map[string]string{"file": "is required"},
		})
		return
	}
	defer f.Close() //nolint:errcheck // multipart temp file
	size, err := io.Copy(io.Discard, f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	workflowID := chi.URLParam(r, "id")
	doc, ok := s.store.addDocument(domain.WorkflowDocument{
		WorkflowID: workflowID,
		FileName:   hdr.Filename,
		Size:       size,
	})
	if !ok {
		writeError(w, http.StatusNotFound, "workflow not found")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.store.deleteDocument(chi.URLParam(r, "id"), chi.URLParam(r, "docID")) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
