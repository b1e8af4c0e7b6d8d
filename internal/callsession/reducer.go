// Package callsession mirrors a backend-driven calling campaign.
//
// The dashboard never advances a session itself. It starts one over REST,
// then folds inbound socket events into State with Reduce until the backend
// reports completion or the user stops it.
package callsession

import (
	"github.com/callwave/callwave/pkg/domain"
)

// Phase is the client-observed lifecycle of a session.
type Phase int

const (
	Idle Phase = iota
	InProgress
)

func (p Phase) String() string {
	if p == InProgress {
		return domain.StatusInProgress
	}
	return "idle"
}

// State is the local projection of the tracked session.
type State struct {
	Phase        Phase
	SessionID    int64
	Status       string
	CurrentIndex int
	TotalCalls   int
	Current      *domain.Contact
	Attempt      int
	History      []domain.CallHistoryEntry
}

// Active reports whether a session is being tracked.
func (s State) Active() bool {
	return s.Phase == InProgress
}

// Event is an input to Reduce.
type Event interface {
	isEvent()
}

// Started is emitted after a start request returns a session id.
type Started struct {
	SessionID  int64
	TotalCalls int
}

// StatusUpdated carries a callStatusUpdate socket event.
type StatusUpdated struct {
	Update domain.CallStatusUpdate
}

// HistoryUpdated carries a callHistoryUpdate socket event.
type HistoryUpdated struct {
	Update domain.CallHistoryUpdate
}

// Stopped is emitted after a stop request succeeds.
type Stopped struct{}

func (Started) isEvent()        {}
func (StatusUpdated) isEvent()  {}
func (HistoryUpdated) isEvent() {}
func (Stopped) isEvent()        {}

// Reduce returns the state after applying ev to s. It never mutates s.
func Reduce(s State, ev Event) State {
	switch ev := ev.(type) {
	case Started:
		return State{
			Phase:      InProgress,
			SessionID:  ev.SessionID,
			Status:     domain.StatusInProgress,
			TotalCalls: ev.TotalCalls,
		}

	case StatusUpdated:
		u := ev.Update
		if !s.tracks(u.SessionID) {
			return s
		}
		next := s
		next.Status = u.Status
		next.CurrentIndex = u.CurrentIndex
		if u.TotalCalls > 0 {
			next.TotalCalls = u.TotalCalls
		}
		if u.CurrentContact != nil {
			c := *u.CurrentContact
			next.Current = &c
		}
		next.Attempt = u.Attempt
		if domain.Terminal(next.Status) || (next.TotalCalls > 0 && next.CurrentIndex >= next.TotalCalls) {
			return State{}
		}
		return next

	case HistoryUpdated:
		if !s.tracks(ev.Update.SessionID) {
			return s
		}
		next := s
		next.History = upsert(s.History, ev.Update.Entry)
		return next

	case Stopped:
		return State{}
	}
	return s
}

func (s State) tracks(id int64) bool {
	return s.Phase == InProgress && s.SessionID == id
}

// upsert copies history so earlier states stay untouched.
func upsert(history []domain.CallHistoryEntry, e domain.CallHistoryEntry) []domain.CallHistoryEntry {
	out := make([]domain.CallHistoryEntry, len(history), len(history)+1)
	copy(out, history)
	for i := range out {
		if out[i].Contact.ID == e.Contact.ID {
			out[i] = e
			return out
		}
	}
	return append(out, e)
}
