package session

import (
	"time"

	"github.com/google/uuid"

	"clipnotes/internal/api"
)

// Phase is the orchestrator's visible lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseLoading    Phase = "loading"
	PhaseSuccess    Phase = "success"
	PhaseError      Phase = "error"
)

// ChatMessage is one turn of a clip's chat thread.
type ChatMessage struct {
	Role         string
	Content      string
	CompletionID string
	CreatedAt    time.Time
}

// Entry is one clip in the session history, keyed by the server-issued clip
// id. Chat, delete, and error state are tracked per entry so one clip's
// failure never blocks another.
type Entry struct {
	ClipID   uuid.UUID
	AssetID  string
	Filename string
	Status   api.ClipStatus
	Analysis *api.ClipAnalysis

	// Chat thread, newest first.
	Chat            []ChatMessage
	ChatBusy        bool
	ChatError       string
	ChatRemediation string

	Deleting          bool
	DeleteError       string
	DeleteRemediation string

	CreatedAt time.Time
}

// clone deep-copies the entry so snapshot holders never observe later
// mutations.
func (e Entry) clone() Entry {
	cloned := e
	if e.Chat != nil {
		cloned.Chat = make([]ChatMessage, len(e.Chat))
		copy(cloned.Chat, e.Chat)
	}
	if e.Analysis != nil {
		analysis := *e.Analysis
		if e.Analysis.Moments != nil {
			analysis.Moments = make([]api.Moment, len(e.Analysis.Moments))
			copy(analysis.Moments, e.Analysis.Moments)
		}
		cloned.Analysis = &analysis
	}
	return cloned
}

// State is a consistent snapshot of the orchestrator.
type State struct {
	Phase Phase

	// Entries is the session history, newest first.
	Entries []Entry

	// Selected is the clip id of the active selection; nil when none.
	Selected *uuid.UUID

	// Error and Remediation describe the most recent submission or
	// selection failure; empty outside PhaseError.
	Error       string
	Remediation string
}

func (s State) clone() State {
	cloned := s
	if s.Entries != nil {
		cloned.Entries = make([]Entry, len(s.Entries))
		for i, entry := range s.Entries {
			cloned.Entries[i] = entry.clone()
		}
	}
	if s.Selected != nil {
		selected := *s.Selected
		cloned.Selected = &selected
	}
	return cloned
}

// Entry returns the history entry for the clip id, if present.
func (s State) Entry(clipID uuid.UUID) (Entry, bool) {
	for _, entry := range s.Entries {
		if entry.ClipID == clipID {
			return entry, true
		}
	}
	return Entry{}, false
}
