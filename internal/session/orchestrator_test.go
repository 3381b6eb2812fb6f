package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"clipnotes/internal/api"
)

type fakeClient struct {
	mu sync.Mutex

	createClip      func(ctx context.Context, filename string) (*api.ClipRegistration, error)
	uploadAsset     func(ctx context.Context, clipID uuid.UUID, filename string, src io.Reader) (*api.ClipRegistration, error)
	triggerAnalysis func(ctx context.Context, clipID uuid.UUID) (*api.ClipAnalysis, error)
	getClip         func(ctx context.Context, clipID uuid.UUID) (*api.ClipDetail, error)
	listClips       func(ctx context.Context) ([]api.ClipListItem, error)
	deleteAsset     func(ctx context.Context, id string) error
	sendChat        func(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error)

	deletedIDs []string
}

func (f *fakeClient) CreateClip(ctx context.Context, filename string) (*api.ClipRegistration, error) {
	if f.createClip != nil {
		return f.createClip(ctx, filename)
	}
	return &api.ClipRegistration{ID: uuid.New(), Filename: filename, Status: api.ClipPending, CreatedAt: time.Now()}, nil
}

func (f *fakeClient) UploadAsset(ctx context.Context, clipID uuid.UUID, filename string, src io.Reader) (*api.ClipRegistration, error) {
	if f.uploadAsset != nil {
		return f.uploadAsset(ctx, clipID, filename, src)
	}
	assetID := "asset-" + clipID.String()[:8]
	return &api.ClipRegistration{ID: clipID, Filename: filename, AssetID: &assetID, Status: api.ClipProcessing}, nil
}

func (f *fakeClient) TriggerAnalysis(ctx context.Context, clipID uuid.UUID) (*api.ClipAnalysis, error) {
	if f.triggerAnalysis != nil {
		return f.triggerAnalysis(ctx, clipID)
	}
	return &api.ClipAnalysis{ClipID: clipID, Summary: "ok", CreatedAt: time.Now()}, nil
}

func (f *fakeClient) GetClip(ctx context.Context, clipID uuid.UUID) (*api.ClipDetail, error) {
	if f.getClip != nil {
		return f.getClip(ctx, clipID)
	}
	return &api.ClipDetail{Clip: api.ClipRegistration{ID: clipID, Status: api.ClipReady}}, nil
}

func (f *fakeClient) ListClips(ctx context.Context) ([]api.ClipListItem, error) {
	if f.listClips != nil {
		return f.listClips(ctx)
	}
	return nil, nil
}

func (f *fakeClient) DeleteAsset(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deletedIDs = append(f.deletedIDs, id)
	f.mu.Unlock()
	if f.deleteAsset != nil {
		return f.deleteAsset(ctx, id)
	}
	return nil
}

func (f *fakeClient) SendChat(ctx context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
	if f.sendChat != nil {
		return f.sendChat(ctx, req)
	}
	return &api.ChatResponse{SubmissionID: req.SubmissionID, Message: "reply to " + req.Prompt}, nil
}

func TestSubmitCreatesEntryFromServerIDs(t *testing.T) {
	clipID := uuid.New()
	assetID := "a1"
	client := &fakeClient{
		createClip: func(_ context.Context, filename string) (*api.ClipRegistration, error) {
			return &api.ClipRegistration{ID: clipID, Filename: filename, Status: api.ClipPending, CreatedAt: time.Now()}, nil
		},
		uploadAsset: func(_ context.Context, id uuid.UUID, filename string, _ io.Reader) (*api.ClipRegistration, error) {
			if id != clipID {
				t.Errorf("upload used wrong clip id: %s", id)
			}
			return &api.ClipRegistration{ID: id, Filename: filename, AssetID: &assetID, Status: api.ClipProcessing}, nil
		},
		triggerAnalysis: func(_ context.Context, id uuid.UUID) (*api.ClipAnalysis, error) {
			if id != clipID {
				t.Errorf("analysis used wrong clip id: %s", id)
			}
			return &api.ClipAnalysis{
				ClipID:  id,
				Summary: "one moment",
				Moments: []api.Moment{{StartS: 0, EndS: 5, Label: "Open", Severity: api.SeverityLow}},
			}, nil
		},
	}
	orchestrator := New(client)

	entry, err := orchestrator.Submit(context.Background(), "clip.mp4", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if entry.ClipID != clipID {
		t.Errorf("clip id = %s, want %s", entry.ClipID, clipID)
	}
	if entry.AssetID != "a1" {
		t.Errorf("asset id = %q, want a1", entry.AssetID)
	}
	if len(entry.Analysis.Moments) != 1 {
		t.Errorf("moments = %d, want 1", len(entry.Analysis.Moments))
	}

	state := orchestrator.Snapshot()
	if state.Phase != PhaseSuccess {
		t.Errorf("phase = %s", state.Phase)
	}
	if len(state.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(state.Entries))
	}
	if state.Selected == nil || *state.Selected != clipID {
		t.Errorf("selected = %v, want %s", state.Selected, clipID)
	}
}

func TestResubmitSameClipKeepsOneEntry(t *testing.T) {
	clipID := uuid.New()
	client := &fakeClient{
		createClip: func(_ context.Context, filename string) (*api.ClipRegistration, error) {
			return &api.ClipRegistration{ID: clipID, Filename: filename, CreatedAt: time.Now()}, nil
		},
	}
	orchestrator := New(client)

	for i := 0; i < 2; i++ {
		if _, err := orchestrator.Submit(context.Background(), "clip.mp4", strings.NewReader("data")); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	if entries := orchestrator.Snapshot().Entries; len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestCancelBeforeAnalysisLeavesNoEntry(t *testing.T) {
	analysisStarted := make(chan struct{})
	client := &fakeClient{
		triggerAnalysis: func(ctx context.Context, _ uuid.UUID) (*api.ClipAnalysis, error) {
			close(analysisStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	orchestrator := New(client)

	done := make(chan error, 1)
	go func() {
		_, err := orchestrator.Submit(context.Background(), "clip.mp4", strings.NewReader("data"))
		done <- err
	}()

	<-analysisStarted
	orchestrator.Cancel()

	err := <-done
	if !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("expected silent abort, got %v", err)
	}

	state := orchestrator.Snapshot()
	if len(state.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(state.Entries))
	}
	if state.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", state.Phase)
	}
	if state.Error != "" {
		t.Errorf("unexpected error state: %q", state.Error)
	}
}

func TestNewSubmitSupersedesInFlightOne(t *testing.T) {
	firstUploading := make(chan struct{})
	release := make(chan struct{})
	secondClip := uuid.New()
	var calls int
	var mu sync.Mutex

	client := &fakeClient{
		uploadAsset: func(ctx context.Context, clipID uuid.UUID, filename string, _ io.Reader) (*api.ClipRegistration, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				close(firstUploading)
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			assetID := "asset-" + filename
			return &api.ClipRegistration{ID: clipID, Filename: filename, AssetID: &assetID, Status: api.ClipProcessing}, nil
		},
	}
	orchestrator := New(client)

	firstDone := make(chan error, 1)
	go func() {
		_, err := orchestrator.Submit(context.Background(), "first.mp4", strings.NewReader("a"))
		firstDone <- err
	}()
	<-firstUploading

	client.createClip = func(_ context.Context, filename string) (*api.ClipRegistration, error) {
		return &api.ClipRegistration{ID: secondClip, Filename: filename, CreatedAt: time.Now()}, nil
	}
	entry, err := orchestrator.Submit(context.Background(), "second.mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	close(release)

	if err := <-firstDone; !errors.Is(err, ErrSuperseded) && !errors.Is(err, context.Canceled) {
		t.Fatalf("first submit error = %v, want superseded", err)
	}

	state := orchestrator.Snapshot()
	if len(state.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(state.Entries))
	}
	if state.Entries[0].ClipID != entry.ClipID {
		t.Errorf("surviving entry = %s, want %s", state.Entries[0].ClipID, entry.ClipID)
	}
	if state.Selected == nil || *state.Selected != secondClip {
		t.Errorf("selected = %v, want %s", state.Selected, secondClip)
	}
}

func TestSelectDiscardsStaleResponse(t *testing.T) {
	slowClip := uuid.New()
	fastClip := uuid.New()
	releaseSlow := make(chan struct{})
	slowStarted := make(chan struct{})

	client := &fakeClient{
		getClip: func(ctx context.Context, clipID uuid.UUID) (*api.ClipDetail, error) {
			if clipID == slowClip {
				close(slowStarted)
				select {
				case <-releaseSlow:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &api.ClipDetail{Clip: api.ClipRegistration{ID: clipID, Status: api.ClipReady}}, nil
		},
	}
	orchestrator := New(client)

	slowDone := make(chan error, 1)
	go func() {
		_, err := orchestrator.Select(context.Background(), slowClip)
		slowDone <- err
	}()
	<-slowStarted

	if _, err := orchestrator.Select(context.Background(), fastClip); err != nil {
		t.Fatalf("fast Select: %v", err)
	}
	close(releaseSlow)

	if err := <-slowDone; !errors.Is(err, ErrStale) {
		t.Fatalf("slow select error = %v, want ErrStale", err)
	}

	state := orchestrator.Snapshot()
	if state.Selected == nil || *state.Selected != fastClip {
		t.Errorf("selected = %v, want %s", state.Selected, fastClip)
	}
	if _, ok := state.Entry(slowClip); ok {
		t.Error("stale clip leaked into history")
	}
}

func TestSelectRestoresExistingEntryWithoutFetch(t *testing.T) {
	var mu sync.Mutex
	var fetches int
	client := &fakeClient{
		getClip: func(_ context.Context, clipID uuid.UUID) (*api.ClipDetail, error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			return nil, &api.Error{Status: 502, Message: "backend down"}
		},
	}
	orchestrator := New(client)

	entry, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	restored, err := orchestrator.Select(context.Background(), entry.ClipID)
	if err != nil {
		t.Fatalf("Select of history entry: %v", err)
	}
	if restored.ClipID != entry.ClipID || restored.Analysis == nil {
		t.Errorf("restored entry = %+v", restored)
	}

	mu.Lock()
	got := fetches
	mu.Unlock()
	if got != 0 {
		t.Errorf("detail fetches = %d, want 0", got)
	}

	state := orchestrator.Snapshot()
	if state.Phase != PhaseSuccess {
		t.Errorf("phase = %s", state.Phase)
	}
	if state.Selected == nil || *state.Selected != entry.ClipID {
		t.Errorf("selected = %v, want %s", state.Selected, entry.ClipID)
	}

	if _, err := orchestrator.Select(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected fetch error for unknown clip")
	}
	mu.Lock()
	got = fetches
	mu.Unlock()
	if got != 1 {
		t.Errorf("detail fetches = %d, want 1", got)
	}
}

func TestSelectFetchesWhenAnalysisMissing(t *testing.T) {
	listed := uuid.New()
	var mu sync.Mutex
	var fetches int
	client := &fakeClient{
		listClips: func(_ context.Context) ([]api.ClipListItem, error) {
			return []api.ClipListItem{{ID: listed, Filename: "a.mp4", Status: api.ClipReady, CreatedAt: time.Now()}}, nil
		},
		getClip: func(_ context.Context, clipID uuid.UUID) (*api.ClipDetail, error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			return &api.ClipDetail{
				Clip:     api.ClipRegistration{ID: clipID, Filename: "a.mp4", Status: api.ClipReady},
				Analysis: &api.ClipAnalysis{ClipID: clipID, Summary: "loaded"},
			}, nil
		},
	}
	orchestrator := New(client)

	if err := orchestrator.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	entry, err := orchestrator.Select(context.Background(), listed)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if entry.Analysis == nil {
		t.Fatal("analysis not loaded for list stub")
	}
	mu.Lock()
	got := fetches
	mu.Unlock()
	if got != 1 {
		t.Errorf("detail fetches = %d, want 1", got)
	}
}

func TestChatErrorIsolatedPerEntry(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	first, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := orchestrator.Submit(context.Background(), "b.mp4", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	client.sendChat = func(_ context.Context, req api.ChatRequest) (*api.ChatResponse, error) {
		if req.SubmissionID == first.ClipID.String() {
			return nil, &api.Error{Status: 503, Message: "chat backend down", Remediation: "try again shortly"}
		}
		return &api.ChatResponse{SubmissionID: req.SubmissionID, Message: "answer"}, nil
	}

	if _, err := orchestrator.SendChat(context.Background(), first.ClipID, "why?"); err == nil {
		t.Fatal("expected chat error for first clip")
	}
	if _, err := orchestrator.SendChat(context.Background(), second.ClipID, "why?"); err != nil {
		t.Fatalf("chat for second clip: %v", err)
	}

	state := orchestrator.Snapshot()
	firstEntry, _ := state.Entry(first.ClipID)
	secondEntry, _ := state.Entry(second.ClipID)

	if firstEntry.ChatError != "chat backend down" || firstEntry.ChatRemediation != "try again shortly" {
		t.Errorf("first entry error state = %q / %q", firstEntry.ChatError, firstEntry.ChatRemediation)
	}
	if secondEntry.ChatError != "" {
		t.Errorf("second entry polluted: %q", secondEntry.ChatError)
	}
	if len(secondEntry.Chat) != 2 || secondEntry.Chat[0].Role != "assistant" {
		t.Errorf("second entry chat = %+v", secondEntry.Chat)
	}
}

func TestDeleteUsesAssetIDWithClipFallback(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	withAsset, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	noAssetID := uuid.New()
	client.createClip = func(_ context.Context, filename string) (*api.ClipRegistration, error) {
		return &api.ClipRegistration{ID: noAssetID, Filename: filename, CreatedAt: time.Now()}, nil
	}
	client.uploadAsset = func(_ context.Context, clipID uuid.UUID, filename string, _ io.Reader) (*api.ClipRegistration, error) {
		return &api.ClipRegistration{ID: clipID, Filename: filename, Status: api.ClipProcessing}, nil
	}
	if _, err := orchestrator.Submit(context.Background(), "b.mp4", strings.NewReader("b")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := orchestrator.Delete(context.Background(), withAsset.ClipID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := orchestrator.Delete(context.Background(), noAssetID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	client.mu.Lock()
	deleted := append([]string(nil), client.deletedIDs...)
	client.mu.Unlock()
	if len(deleted) != 2 {
		t.Fatalf("deletes = %v", deleted)
	}
	if deleted[0] != withAsset.AssetID {
		t.Errorf("first delete id = %q, want asset id %q", deleted[0], withAsset.AssetID)
	}
	if deleted[1] != noAssetID.String() {
		t.Errorf("second delete id = %q, want clip id fallback", deleted[1])
	}

	if entries := orchestrator.Snapshot().Entries; len(entries) != 0 {
		t.Errorf("entries = %d, want 0", len(entries))
	}
}

func TestDeleteActiveSelectionResetsViewToIdle(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	var entries []*Entry
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		entry, err := orchestrator.Submit(context.Background(), name, strings.NewReader(name))
		if err != nil {
			t.Fatalf("Submit %s: %v", name, err)
		}
		entries = append(entries, entry)
	}
	active := entries[2]

	// Deleting a non-active entry leaves the selection and phase alone.
	if err := orchestrator.Delete(context.Background(), entries[0].ClipID); err != nil {
		t.Fatalf("Delete non-active: %v", err)
	}
	state := orchestrator.Snapshot()
	if state.Phase != PhaseSuccess {
		t.Errorf("phase after deleting non-active entry = %s", state.Phase)
	}
	if state.Selected == nil || *state.Selected != active.ClipID {
		t.Errorf("selected = %v, want %s", state.Selected, active.ClipID)
	}

	// Deleting the active selection returns the view to idle even though
	// another entry remains.
	if err := orchestrator.Delete(context.Background(), active.ClipID); err != nil {
		t.Fatalf("Delete active: %v", err)
	}
	state = orchestrator.Snapshot()
	if state.Phase != PhaseIdle {
		t.Errorf("phase after deleting active entry = %s, want idle", state.Phase)
	}
	if state.Selected != nil {
		t.Errorf("selected = %v, want nil", state.Selected)
	}
	if len(state.Entries) != 1 {
		t.Errorf("entries = %d, want 1", len(state.Entries))
	}
}

func TestDeleteFailureKeepsEntryWithError(t *testing.T) {
	client := &fakeClient{
		deleteAsset: func(_ context.Context, _ string) error {
			return &api.Error{Status: 409, Message: "asset in use"}
		},
	}
	orchestrator := New(client)

	entry, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := orchestrator.Delete(context.Background(), entry.ClipID); err == nil {
		t.Fatal("expected delete error")
	}

	state := orchestrator.Snapshot()
	got, ok := state.Entry(entry.ClipID)
	if !ok {
		t.Fatal("entry removed despite failure")
	}
	if got.DeleteError != "asset in use" || got.Deleting {
		t.Errorf("delete state = %+v", got)
	}
}

func TestLoadHistoryPreservesLoadedDetail(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	entry, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := orchestrator.SendChat(context.Background(), entry.ClipID, "what happened?"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}

	other := uuid.New()
	client.listClips = func(_ context.Context) ([]api.ClipListItem, error) {
		return []api.ClipListItem{
			{ID: other, Filename: "other.mp4", Status: api.ClipReady, CreatedAt: time.Now()},
			{ID: entry.ClipID, Filename: "a.mp4", Status: api.ClipReady, CreatedAt: entry.CreatedAt},
		}, nil
	}

	if err := orchestrator.LoadHistory(context.Background()); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	state := orchestrator.Snapshot()
	if len(state.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(state.Entries))
	}
	kept, _ := state.Entry(entry.ClipID)
	if len(kept.Chat) != 2 {
		t.Errorf("chat thread lost on reload: %d messages", len(kept.Chat))
	}
	if kept.Analysis == nil {
		t.Error("analysis lost on reload")
	}
}

func TestSnapshotIsIsolatedFromLaterMutations(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	entry, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	before := orchestrator.Snapshot()
	if _, err := orchestrator.SendChat(context.Background(), entry.ClipID, "q"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}

	frozen, _ := before.Entry(entry.ClipID)
	if len(frozen.Chat) != 0 {
		t.Errorf("earlier snapshot mutated: %d chat messages", len(frozen.Chat))
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	client := &fakeClient{}
	orchestrator := New(client)

	var mu sync.Mutex
	var phases []Phase
	orchestrator.Subscribe(func(s State) {
		mu.Lock()
		phases = append(phases, s.Phase)
		mu.Unlock()
	})

	if _, err := orchestrator.Submit(context.Background(), "a.mp4", strings.NewReader("a")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(phases) < 2 {
		t.Fatalf("notifications = %v", phases)
	}
	if phases[0] != PhaseSubmitting || phases[len(phases)-1] != PhaseSuccess {
		t.Errorf("phase sequence = %v", phases)
	}
}
