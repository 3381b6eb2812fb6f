package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipnotes/internal/api"
	"clipnotes/internal/logging"
)

var (
	// ErrSuperseded reports that a newer submission replaced this one; the
	// caller should treat it as a silent no-op.
	ErrSuperseded = errors.New("submission superseded by a newer one")
	// ErrStale reports that a newer selection was issued while this fetch
	// was in flight; the response was discarded.
	ErrStale = errors.New("selection response discarded as stale")
	// ErrNoEntry reports that the clip id is not in the session history.
	ErrNoEntry = errors.New("no session entry for clip")
)

// Client is the backend surface the orchestrator drives.
type Client interface {
	CreateClip(ctx context.Context, filename string) (*api.ClipRegistration, error)
	UploadAsset(ctx context.Context, clipID uuid.UUID, filename string, src io.Reader) (*api.ClipRegistration, error)
	TriggerAnalysis(ctx context.Context, clipID uuid.UUID) (*api.ClipAnalysis, error)
	GetClip(ctx context.Context, clipID uuid.UUID) (*api.ClipDetail, error)
	ListClips(ctx context.Context) ([]api.ClipListItem, error)
	DeleteAsset(ctx context.Context, id string) error
	SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)
}

// Orchestrator owns the session state machine.
type Orchestrator struct {
	client Client
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	current     *submitToken
	selectSeq   int64
	subscribers []func(State)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logging.NewComponentLogger(logger, "session")
		}
	}
}

// New constructs an idle orchestrator.
func New(client Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		logger: logging.NewNop(),
		state:  State{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns a consistent copy of the current state.
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Subscribe registers a callback invoked with a snapshot after every state
// change.
func (o *Orchestrator) Subscribe(fn func(State)) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.subscribers = append(o.subscribers, fn)
	o.mu.Unlock()
}

// update applies a mutation to a copy of the state, swaps it in, and notifies
// subscribers outside the lock.
func (o *Orchestrator) update(mutate func(*State)) State {
	o.mu.Lock()
	next := o.state.clone()
	mutate(&next)
	o.state = next
	snapshot := next.clone()
	subscribers := slices.Clone(o.subscribers)
	o.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
	return snapshot
}

// updateIfCurrent applies the mutation only while the token is still the
// active submission. Returns false when the submission was superseded.
func (o *Orchestrator) updateIfCurrent(token *submitToken, mutate func(*State)) bool {
	o.mu.Lock()
	if o.current != token || token.Superseded() {
		o.mu.Unlock()
		return false
	}
	next := o.state.clone()
	mutate(&next)
	o.state = next
	snapshot := next.clone()
	subscribers := slices.Clone(o.subscribers)
	o.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
	return true
}

// Submit runs the register, upload, analyze sequence for one clip. Any
// in-flight submission is superseded first. The returned entry is keyed by
// the server-issued clip id.
func (o *Orchestrator) Submit(ctx context.Context, filename string, src io.Reader) (*Entry, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, errors.New("filename must not be empty")
	}

	o.mu.Lock()
	if o.current != nil {
		o.current.Supersede()
	}
	token := newSubmitToken(ctx)
	o.current = token
	o.mu.Unlock()

	o.updateIfCurrent(token, func(s *State) {
		s.Phase = PhaseSubmitting
		s.Error = ""
		s.Remediation = ""
	})

	entry, err := o.runSubmission(token, filename, src)
	if err != nil {
		if token.Superseded() {
			return nil, ErrSuperseded
		}
		if api.IsCanceled(err) {
			o.finishSubmission(token, func(s *State) {
				revertToConfirmed(s)
			})
			return nil, context.Canceled
		}
		message, remediation := describeError(err)
		o.finishSubmission(token, func(s *State) {
			s.Phase = PhaseError
			s.Error = message
			s.Remediation = remediation
		})
		return nil, err
	}

	applied := o.finishSubmission(token, func(s *State) {
		s.Entries = upsertEntry(s.Entries, *entry)
		selected := entry.ClipID
		s.Selected = &selected
		s.Phase = PhaseSuccess
		s.Error = ""
		s.Remediation = ""
	})
	if !applied {
		return nil, ErrSuperseded
	}

	o.logger.Info("submission completed",
		logging.String(logging.FieldClipID, entry.ClipID.String()),
		logging.String(logging.FieldAssetID, entry.AssetID),
		logging.String("filename", filename))
	return entry, nil
}

// runSubmission performs the three network steps, checking for supersession
// after every suspension point.
func (o *Orchestrator) runSubmission(token *submitToken, filename string, src io.Reader) (*Entry, error) {
	registration, err := o.client.CreateClip(token.ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("register clip: %w", err)
	}
	if token.Superseded() {
		return nil, ErrSuperseded
	}

	uploaded, err := o.client.UploadAsset(token.ctx, registration.ID, filename, src)
	if err != nil {
		return nil, fmt.Errorf("upload asset: %w", err)
	}
	if token.Superseded() {
		return nil, ErrSuperseded
	}

	analysis, err := o.client.TriggerAnalysis(token.ctx, uploaded.ID)
	if err != nil {
		return nil, fmt.Errorf("analyze clip: %w", err)
	}
	if token.Superseded() {
		return nil, ErrSuperseded
	}

	entry := Entry{
		ClipID:    registration.ID,
		Filename:  registration.Filename,
		Status:    uploaded.Status,
		Analysis:  analysis,
		CreatedAt: registration.CreatedAt,
	}
	if uploaded.AssetID != nil {
		entry.AssetID = *uploaded.AssetID
	}
	if analysis != nil {
		if analysis.ErrorCode != "" {
			entry.Status = api.ClipFailed
		} else {
			entry.Status = api.ClipReady
		}
	}
	return &entry, nil
}

// finishSubmission applies the terminal mutation and releases the token slot.
func (o *Orchestrator) finishSubmission(token *submitToken, mutate func(*State)) bool {
	applied := o.updateIfCurrent(token, mutate)
	o.mu.Lock()
	if o.current == token {
		o.current = nil
	}
	o.mu.Unlock()
	return applied
}

// Cancel aborts any in-flight submission and reverts the visible phase to the
// last confirmed state.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	token := o.current
	o.current = nil
	o.mu.Unlock()

	if token == nil {
		return
	}
	token.Supersede()
	o.update(func(s *State) {
		if s.Phase == PhaseSubmitting {
			revertToConfirmed(s)
		}
	})
}

// Reset cancels everything and clears the session history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.current != nil {
		o.current.Supersede()
		o.current = nil
	}
	o.mu.Unlock()

	o.update(func(s *State) {
		*s = State{Phase: PhaseIdle}
	})
}

// Select makes a clip the active selection. An entry whose analysis is
// already in the history is restored directly, with no network call. The miss
// path fetches the clip's detail; each fetch takes a new sequence number and
// only the response for the highest-issued sequence is applied, so a slower
// older fetch never overwrites a newer one.
func (o *Orchestrator) Select(ctx context.Context, clipID uuid.UUID) (*Entry, error) {
	if entry, ok := o.restoreFromHistory(clipID); ok {
		return entry, nil
	}

	o.mu.Lock()
	o.selectSeq++
	seq := o.selectSeq
	o.mu.Unlock()

	o.update(func(s *State) {
		s.Phase = PhaseLoading
	})

	detail, err := o.client.GetClip(ctx, clipID)

	o.mu.Lock()
	if seq != o.selectSeq {
		o.mu.Unlock()
		return nil, ErrStale
	}
	o.mu.Unlock()

	if err != nil {
		if api.IsCanceled(err) {
			o.update(revertToConfirmed)
			return nil, context.Canceled
		}
		message, remediation := describeError(err)
		o.update(func(s *State) {
			s.Phase = PhaseError
			s.Error = message
			s.Remediation = remediation
		})
		return nil, fmt.Errorf("select clip: %w", err)
	}

	var selectedEntry Entry
	o.update(func(s *State) {
		entry := entryFromDetail(detail)
		if existing, ok := s.Entry(entry.ClipID); ok {
			entry.Chat = existing.Chat
			entry.ChatBusy = existing.ChatBusy
		}
		s.Entries = upsertEntry(s.Entries, entry)
		selected := entry.ClipID
		s.Selected = &selected
		s.Phase = PhaseSuccess
		s.Error = ""
		s.Remediation = ""
		selectedEntry = entry.clone()
	})
	return &selectedEntry, nil
}

// restoreFromHistory promotes an already-materialized history entry to the
// active selection. Entries whose analysis was never fetched (clip-list stubs
// from LoadHistory) do not qualify; those go through the fetch path.
func (o *Orchestrator) restoreFromHistory(clipID uuid.UUID) (*Entry, bool) {
	o.mu.Lock()
	existing, ok := o.state.Entry(clipID)
	o.mu.Unlock()
	if !ok || existing.Analysis == nil {
		return nil, false
	}

	var restored Entry
	found := false
	o.update(func(s *State) {
		entry, ok := s.Entry(clipID)
		if !ok {
			return
		}
		selected := clipID
		s.Selected = &selected
		s.Phase = PhaseSuccess
		s.Error = ""
		s.Remediation = ""
		restored = entry.clone()
		found = true
	})
	if !found {
		return nil, false
	}
	return &restored, true
}

// SendChat asks a follow-up question scoped to one history entry. Busy and
// error state are tracked on the entry itself.
func (o *Orchestrator) SendChat(ctx context.Context, clipID uuid.UUID, prompt string) (*ChatMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	var found bool
	o.update(func(s *State) {
		found = mutateEntry(s, clipID, func(entry *Entry) {
			entry.ChatBusy = true
			entry.ChatError = ""
			entry.ChatRemediation = ""
		})
	})
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, clipID)
	}

	resp, err := o.client.SendChat(ctx, api.ChatRequest{
		SubmissionID: clipID.String(),
		Prompt:       prompt,
	})
	if err != nil {
		if api.IsCanceled(err) {
			o.update(func(s *State) {
				mutateEntry(s, clipID, func(entry *Entry) {
					entry.ChatBusy = false
				})
			})
			return nil, context.Canceled
		}
		message, remediation := describeError(err)
		o.update(func(s *State) {
			mutateEntry(s, clipID, func(entry *Entry) {
				entry.ChatBusy = false
				entry.ChatError = message
				entry.ChatRemediation = remediation
			})
		})
		return nil, fmt.Errorf("send chat: %w", err)
	}

	reply := ChatMessage{
		Role:         "assistant",
		Content:      resp.Message,
		CompletionID: resp.CompletionID,
		CreatedAt:    time.Now().UTC(),
	}
	question := ChatMessage{
		Role:      "user",
		Content:   prompt,
		CreatedAt: time.Now().UTC(),
	}
	o.update(func(s *State) {
		mutateEntry(s, clipID, func(entry *Entry) {
			entry.ChatBusy = false
			entry.Chat = append([]ChatMessage{reply, question}, entry.Chat...)
		})
	})
	return &reply, nil
}

// Delete removes a clip's stored asset and drops the entry from the history.
// The asset id is used when one was assigned, falling back to the clip id.
func (o *Orchestrator) Delete(ctx context.Context, clipID uuid.UUID) error {
	o.mu.Lock()
	entry, ok := o.state.Entry(clipID)
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoEntry, clipID)
	}

	o.update(func(s *State) {
		mutateEntry(s, clipID, func(entry *Entry) {
			entry.Deleting = true
			entry.DeleteError = ""
			entry.DeleteRemediation = ""
		})
	})

	targetID := entry.AssetID
	if targetID == "" {
		targetID = clipID.String()
	}
	if err := o.client.DeleteAsset(ctx, targetID); err != nil {
		if api.IsCanceled(err) {
			o.update(func(s *State) {
				mutateEntry(s, clipID, func(entry *Entry) {
					entry.Deleting = false
				})
			})
			return context.Canceled
		}
		message, remediation := describeError(err)
		o.update(func(s *State) {
			mutateEntry(s, clipID, func(entry *Entry) {
				entry.Deleting = false
				entry.DeleteError = message
				entry.DeleteRemediation = remediation
			})
		})
		return fmt.Errorf("delete asset: %w", err)
	}

	o.update(func(s *State) {
		wasSelected := s.Selected != nil && *s.Selected == clipID
		s.Entries = slices.DeleteFunc(s.Entries, func(e Entry) bool {
			return e.ClipID == clipID
		})
		// Removing the active selection returns the view to idle even when
		// other history entries remain.
		if wasSelected {
			s.Selected = nil
			s.Phase = PhaseIdle
		}
		if len(s.Entries) == 0 {
			s.Phase = PhaseIdle
		}
	})

	o.logger.Info("entry deleted",
		logging.String(logging.FieldClipID, clipID.String()),
		logging.String(logging.FieldAssetID, entry.AssetID))
	return nil
}

// LoadHistory replaces the history with the backend's clip list, preserving
// chat threads and analyses already loaded for clips that are still present.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	o.update(func(s *State) {
		s.Phase = PhaseLoading
	})

	items, err := o.client.ListClips(ctx)
	if err != nil {
		if api.IsCanceled(err) {
			o.update(revertToConfirmed)
			return context.Canceled
		}
		message, remediation := describeError(err)
		o.update(func(s *State) {
			s.Phase = PhaseError
			s.Error = message
			s.Remediation = remediation
		})
		return fmt.Errorf("load history: %w", err)
	}

	o.update(func(s *State) {
		entries := make([]Entry, 0, len(items))
		for _, item := range items {
			entry := Entry{
				ClipID:    item.ID,
				Filename:  item.Filename,
				Status:    item.Status,
				CreatedAt: item.CreatedAt,
			}
			if item.AssetID != nil {
				entry.AssetID = *item.AssetID
			}
			if existing, ok := s.Entry(item.ID); ok {
				entry.Chat = existing.Chat
				entry.Analysis = existing.Analysis
			}
			entries = append(entries, entry)
		}
		s.Entries = entries
		if s.Selected != nil {
			if _, ok := s.Entry(*s.Selected); !ok {
				s.Selected = nil
			}
		}
		if len(entries) == 0 {
			s.Phase = PhaseIdle
		} else {
			s.Phase = PhaseSuccess
		}
		s.Error = ""
		s.Remediation = ""
	})
	return nil
}

// upsertEntry prepends the entry, replacing any existing entry with the same
// clip id so exactly one entry exists per clip.
func upsertEntry(entries []Entry, entry Entry) []Entry {
	filtered := make([]Entry, 0, len(entries)+1)
	filtered = append(filtered, entry)
	for _, existing := range entries {
		if existing.ClipID != entry.ClipID {
			filtered = append(filtered, existing)
		}
	}
	return filtered
}

func mutateEntry(s *State, clipID uuid.UUID, mutate func(*Entry)) bool {
	for i := range s.Entries {
		if s.Entries[i].ClipID == clipID {
			mutate(&s.Entries[i])
			return true
		}
	}
	return false
}

func entryFromDetail(detail *api.ClipDetail) Entry {
	entry := Entry{
		ClipID:    detail.Clip.ID,
		Filename:  detail.Clip.Filename,
		Status:    detail.Clip.Status,
		Analysis:  detail.Analysis,
		CreatedAt: detail.Clip.CreatedAt,
	}
	if detail.Clip.AssetID != nil {
		entry.AssetID = *detail.Clip.AssetID
	}
	return entry
}

// revertToConfirmed returns the phase to the last confirmed view: success
// when history exists, idle otherwise.
func revertToConfirmed(s *State) {
	if len(s.Entries) > 0 {
		s.Phase = PhaseSuccess
	} else {
		s.Phase = PhaseIdle
	}
}

func describeError(err error) (string, string) {
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Message, apiErr.Remediation
	}
	return err.Error(), ""
}
