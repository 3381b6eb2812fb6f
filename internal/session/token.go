package session

import (
	"context"
	"sync/atomic"
)

// submitToken tracks one submission's lifetime. Superseding cancels the
// context and raises a flag the submission checks after every suspension
// point, so a late completion becomes a silent no-op instead of clobbering
// newer state.
type submitToken struct {
	ctx        context.Context
	cancel     context.CancelFunc
	superseded atomic.Bool
}

func newSubmitToken(parent context.Context) *submitToken {
	ctx, cancel := context.WithCancel(parent)
	return &submitToken{ctx: ctx, cancel: cancel}
}

func (t *submitToken) Supersede() {
	if t == nil {
		return
	}
	t.superseded.Store(true)
	t.cancel()
}

func (t *submitToken) Superseded() bool {
	return t != nil && t.superseded.Load()
}
