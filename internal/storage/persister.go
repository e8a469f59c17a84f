package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/logger"

	"luckydraw/internal/models"
)

// Saver is what the Persister writes to.
type Saver interface {
	Save(ctx context.Context, tenantID string, snap models.Snapshot) error
	Delete(ctx context.Context, tenantID string) error
}

// Persister writes snapshots in the background. Only the newest pending
// snapshot per tenant is kept, so Enqueue never blocks the caller.
type Persister struct {
	saver   Saver
	timeout time.Duration

	// writeMu orders flushes against Forget.
	writeMu sync.Mutex
	mu      sync.Mutex
	pending map[string]models.Snapshot
	wake    chan struct{}
}

// NewPersister returns a persister; call Run to start writing.
func NewPersister(saver Saver, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Persister{
		saver:   saver,
		timeout: timeout,
		pending: make(map[string]models.Snapshot),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue schedules snap for tenantID, replacing any unsaved one.
func (p *Persister) Enqueue(tenantID string, snap models.Snapshot) {
	p.mu.Lock()
	p.pending[tenantID] = snap
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done, then flushes what is left.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case <-p.wake:
			p.flush()
		}
	}
}

// Forget drops the tenant's unsaved snapshot and deletes the stored one.
// It waits for a flush in progress, so no earlier snapshot is written after
// it returns.
func (p *Persister) Forget(ctx context.Context, tenantID string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	delete(p.pending, tenantID)
	p.mu.Unlock()
	return p.saver.Delete(ctx, tenantID)
}

// flush saves every pending snapshot. Saves do not inherit Run's context.
func (p *Persister) flush() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]models.Snapshot)
	p.mu.Unlock()

	for tenantID, snap := range batch {
		saveCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.saver.Save(saveCtx, tenantID, snap); err != nil {
			logger.Errorf("persisting tenant %s: %v", tenantID, err)
		}
		cancel()
	}
}

// Pending reports how many tenants have unsaved snapshots.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
