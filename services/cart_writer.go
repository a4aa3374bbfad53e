package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
)

// remoteCartStore is the subset of the cart repository the writer needs.
type remoteCartStore interface {
	ReplaceItems(ctx context.Context, userID string, items []models.CartItem, seq int64) error
}

// RemoteCartWriter coalesces bursts of remote cart writes into a single
// trailing write per user. Every write carries a sequence number taken at
// enqueue time; the store only applies a write whose sequence is higher than
// the stored one, so a slow flush that lands after a newer write is a no-op.
type RemoteCartWriter struct {
	store remoteCartStore
	delay time.Duration
	log   *zap.Logger

	mu      sync.Mutex
	lastSeq int64
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	timer *time.Timer
	items []models.CartItem
	seq   int64
}

func NewRemoteCartWriter(store remoteCartStore, delay time.Duration, log *zap.Logger) *RemoteCartWriter {
	return &RemoteCartWriter{
		store:   store,
		delay:   delay,
		log:     log,
		pending: make(map[string]*pendingWrite),
	}
}

// nextSeq must be called with mu held.
func (w *RemoteCartWriter) nextSeq() int64 {
	seq := time.Now().UnixNano()
	if seq <= w.lastSeq {
		seq = w.lastSeq + 1
	}
	w.lastSeq = seq
	return seq
}

// Enqueue schedules a trailing write of the full item list. A second enqueue
// within the delay window replaces the pending payload and restarts the timer.
func (w *RemoteCartWriter) Enqueue(userID string, items []models.CartItem) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.nextSeq()
	if p, ok := w.pending[userID]; ok {
		p.items = items
		p.seq = seq
		p.timer.Reset(w.delay)
		return
	}
	p := &pendingWrite{items: items, seq: seq}
	p.timer = time.AfterFunc(w.delay, func() { w.flushUser(userID) })
	w.pending[userID] = p
}

// WriteNow cancels any pending write for the user and writes synchronously,
// returning the store's error. Used for merges and clears, where the caller
// must know the write landed before taking an irreversible next step.
func (w *RemoteCartWriter) WriteNow(ctx context.Context, userID string, items []models.CartItem) error {
	w.mu.Lock()
	if p, ok := w.pending[userID]; ok {
		p.timer.Stop()
		delete(w.pending, userID)
	}
	seq := w.nextSeq()
	w.mu.Unlock()

	return w.store.ReplaceItems(ctx, userID, items, seq)
}

// Pending returns the latest not-yet-flushed items for the user, so reads
// observe their own writes during the debounce window.
func (w *RemoteCartWriter) Pending(userID string) ([]models.CartItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[userID]; ok {
		return append([]models.CartItem(nil), p.items...), true
	}
	return nil, false
}

func (w *RemoteCartWriter) flushUser(userID string) {
	w.mu.Lock()
	p, ok := w.pending[userID]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, userID)
	items, seq := p.items, p.seq
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.store.ReplaceItems(ctx, userID, items, seq); err != nil {
		w.log.Warn("Failed to flush cart write",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

// Flush writes out every pending cart immediately. Called on shutdown.
func (w *RemoteCartWriter) Flush() {
	w.mu.Lock()
	ids := make([]string, 0, len(w.pending))
	for id, p := range w.pending {
		p.timer.Stop()
		ids = append(ids, id)
	}
	w.mu.Unlock()

	for _, id := range ids {
		w.flushUser(id)
	}
}
