package devserver

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/callwave/callwave/internal/realtime"
	"github.com/callwave/callwave/pkg/domain"
)

// OutcomeFunc decides how a dial attempt ends.
type OutcomeFunc func(c domain.Contact, attempt int) string

// RandomOutcome answers most calls and spreads the rest over the other outcomes.
func RandomOutcome(domain.Contact, int) string {
	switch n := rand.IntN(10); {
	case n < 5:
		return domain.StatusAccepted
	case n < 7:
		return domain.StatusMissed
	case n < 9:
		return domain.StatusDeclined
	default:
		return domain.StatusFailed
	}
}

// campaign dials through a contact group, publishing progress to the hub.
type campaign struct {
	id       int64
	group    domain.ContactGroup
	workflow domain.Workflow

	cancel context.CancelFunc
	done   chan struct{}
}

type campaigns struct {
	mu     sync.Mutex
	active map[int64]*campaign
}

func (cs *campaigns) add(c *campaign) {
	cs.mu.Lock()
	cs.active[c.id] = c
	cs.mu.Unlock()
}

func (cs *campaigns) remove(id int64) {
	cs.mu.Lock()
	delete(cs.active, id)
	cs.mu.Unlock()
}

func (cs *campaigns) get(id int64) (*campaign, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.active[id]
	return c, ok
}

func (cs *campaigns) stopAll() {
	cs.mu.Lock()
	all := make([]*campaign, 0, len(cs.active))
	for _, c := range cs.active {
		all = append(all, c)
	}
	cs.mu.Unlock()
	for _, c := range all {
		c.cancel()
		<-c.done
	}
}

// runCampaign dials each contact in order, retrying missed calls up to MaxAttempts.
func (s *Server) runCampaign(ctx context.Context, c *campaign) {
	defer close(c.done)
	defer s.campaigns.remove(c.id)

	log := s.log.With(zap.Int64("session_id", c.id))
	total := len(c.group.Contacts)
	s.hub.waitSubscribed(ctx, c.id, s.opts.SubscribeWait)

	status := func(st string, idx, attempt int, cur *domain.Contact) {
		s.hub.publish(c.id, realtime.EventCallStatusUpdate, domain.CallStatusUpdate{
			SessionID:      c.id,
			Status:         st,
			CurrentIndex:   idx,
			TotalCalls:     total,
			CurrentContact: cur,
			Attempt:        attempt,
		})
	}
	historyEntry := func(ct domain.Contact, st string, attempt, dur int) {
		s.hub.publish(c.id, realtime.EventCallHistoryUpdate, domain.CallHistoryUpdate{
			SessionID: c.id,
			Entry: domain.CallHistoryEntry{
				Contact: ct, Status: st, Attempt: attempt, Duration: dur, UpdatedAt: time.Now().UTC(),
			},
		})
	}
	wait := func() bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.opts.CallInterval):
			return true
		}
	}

	log.Info("campaign started", zap.Int("total", total), zap.String("workflow", c.workflow.Name))
	for i, ct := range c.group.Contacts {
		ct := ct
		var outcome string
		attempt := 0
		started := time.Now().UTC()
		for attempt < s.opts.MaxAttempts {
			attempt++
			status(domain.StatusCalling, i, attempt, &ct)
			historyEntry(ct, domain.StatusCalling, attempt, 0)
			if !wait() {
				s.finishStopped(c, i, total)
				return
			}
			outcome = s.opts.Outcome(ct, attempt)
			if outcome != domain.StatusMissed {
				break
			}
		}
		dur := 0
		if outcome == domain.StatusAccepted && ct.Phone != "" {
			dur = 30 + int(ct.Phone[len(ct.Phone)-1]%60)
		}
		status(outcome, i, attempt, &ct)
		historyEntry(ct, outcome, attempt, dur)
		s.store.addRecord(domain.CallRecord{
			SessionID:    c.id,
			ContactName:  ct.Name,
			Phone:        ct.Phone,
			WorkflowName: c.workflow.Name,
			Status:       outcome,
			Attempts:     attempt,
			Duration:     dur,
			StartedAt:    started,
		})
	}
	status(domain.StatusCompleted, total, 0, nil)
	log.Info("campaign completed")
}

func (s *Server) finishStopped(c *campaign, idx, total int) {
	s.hub.publish(c.id, realtime.EventCallStatusUpdate, domain.CallStatusUpdate{
		SessionID:    c.id,
		Status:       domain.StatusStopped,
		CurrentIndex: idx,
		TotalCalls:   total,
	})
	s.log.Info("campaign stopped", zap.Int64("session_id", c.id), zap.Int("index", idx))
}
