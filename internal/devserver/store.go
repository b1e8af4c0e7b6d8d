package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/callwave/callwave/pkg/domain"
)

// account is a user plus its password hash.
type account struct {
	user         domain.User
	passwordHash []byte
}

// store keeps every record in memory. All methods are safe for concurrent use.
type store struct {
	mu        sync.RWMutex
	accounts  map[string]*account // by email
	groups    map[string]*domain.ContactGroup
	workflows map[string]*domain.Workflow
	documents map[string][]domain.WorkflowDocument // by workflow id
	records   []domain.CallRecord
	revoked   map[string]bool // refresh tokens
	nextSess  int64
}

func newStore() *store {
	return &store{
		accounts:  make(map[string]*account),
		groups:    make(map[string]*domain.ContactGroup),
		workflows: make(map[string]*domain.Workflow),
		documents: make(map[string][]domain.WorkflowDocument),
		revoked:   make(map[string]bool),
	}
}

func (s *store) addAccount(u domain.User, hash []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Email] = &account{user: u, passwordHash: hash}
}

func (s *store) accountByEmail(email string) (*account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[email]
	return a, ok
}

func (s *store) userByID(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return domain.User{}, false
}

func (s *store) revoke(refresh string) {
	s.mu.Lock()
	s.revoked[refresh] = true
	s.mu.Unlock()
}

func (s *store) isRevoked(refresh string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revoked[refresh]
}

// --- Contact groups ---

func (s *store) createGroup(name string, contacts []domain.Contact) domain.ContactGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &domain.ContactGroup{
		ID:           uuid.NewString(),
		Name:         name,
		ContactCount: len(contacts),
		Contacts:     make([]domain.Contact, len(contacts)),
		CreatedAt:    time.Now().UTC(),
	}
	for i, c := range contacts {
		c.ID = uuid.NewString()
		g.Contacts[i] = c
	}
	s.groups[g.ID] = g
	return *g
}

func (s *store) listGroups() []domain.ContactGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ContactGroup, 0, len(s.groups))
	for _, g := range s.groups {
		summary := *g
		summary.Contacts = nil
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *store) group(id string) (domain.ContactGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return domain.ContactGroup{}, false
	}
	out := *g
	out.Contacts = append([]domain.Contact(nil), g.Contacts...)
	return out, true
}

// --- Workflows ---

func (s *store) saveWorkflow(wf domain.Workflow) domain.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if wf.ID == "" {
		wf.ID = uuid.NewString()
		wf.CreatedAt = now
	} else if prev, ok := s.workflows[wf.ID]; ok {
		wf.CreatedAt = prev.CreatedAt
	}
	wf.UpdatedAt = now
	wf.Documents = len(s.documents[wf.ID])
	s.workflows[wf.ID] = &wf
	return wf
}

func (s *store) listWorkflows() []domain.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		out = append(out, *wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *store) workflow(id string) (domain.Workflow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return domain.Workflow{}, false
	}
	return *wf, true
}

func (s *store) deleteWorkflow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[id]; !ok {
		return false
	}
	delete(s.workflows, id)
	delete(s.documents, id)
	return true
}

func (s *store) addDocument(doc domain.WorkflowDocument) (domain.WorkflowDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[doc.WorkflowID]
	if !ok {
		return domain.WorkflowDocument{}, false
	}
	doc.ID = uuid.NewString()
	doc.UploadedAt = time.Now().UTC()
	s.documents[doc.WorkflowID] = append(s.documents[doc.WorkflowID], doc)
	wf.Documents = len(s.documents[doc.WorkflowID])
	return doc, true
}

func (s *store) listDocuments(workflowID string) ([]domain.WorkflowDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.workflows[workflowID]; !ok {
		return nil, false
	}
	return append([]domain.WorkflowDocument{}, s.documents[workflowID]...), true
}

func (s *store) deleteDocument(workflowID, docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.documents[workflowID]
	for i, d := range docs {
		if d.ID == docID {
			s.documents[workflowID] = append(docs[:i:i], docs[i+1:]...)
			if wf, ok := s.workflows[workflowID]; ok {
				wf.Documents = len(s.documents[workflowID])
			}
			return true
		}
	}
	return false
}

// --- Calls ---

func (s *store) newSessionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSess++
	return s.nextSess
}

func (s *store) addRecord(r domain.CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = uuid.NewString()
	s.records = append(s.records, r)
}

// history returns records newest first. Pages start at 1.
func (s *store) history(page, limit int) domain.CallHistoryPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.records)
	out := domain.CallHistoryPage{Page: page, Total: total, Records: []domain.CallRecord{}}
	if page-1 >= total {
		return out
	}
	start := (page - 1) * limit
	for i := start; i < start+limit && i < total; i++ {
		out.Records = append(out.Records, s.records[total-1-i])
	}
	return out
}
