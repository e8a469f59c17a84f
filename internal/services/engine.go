package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"luckydraw/internal/rng"
)

// State is the phase of the draw engine.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateRevealing
	StateSettling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRevealing:
		return "revealing"
	case StateSettling:
		return "settling"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives the engine's events. Calls come from the draw's own
// goroutine, one at a time.
type Observer interface {
	OnTick(tier string, display []string)
	OnCompleted(tier string, winners []string)
	OnConflict(tier string, err error)
	OnCancelled(tier string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Tick      func(tier string, display []string)
	Completed func(tier string, winners []string)
	Conflict  func(tier string, err error)
	Cancelled func(tier string)
}

func (o ObserverFuncs) OnTick(tier string, display []string) {
	if o.Tick != nil {
		o.Tick(tier, display)
	}
}

func (o ObserverFuncs) OnCompleted(tier string, winners []string) {
	if o.Completed != nil {
		o.Completed(tier, winners)
	}
}

func (o ObserverFuncs) OnConflict(tier string, err error) {
	if o.Conflict != nil {
		o.Conflict(tier, err)
	}
}

func (o ObserverFuncs) OnCancelled(tier string) {
	if o.Cancelled != nil {
		o.Cancelled(tier)
	}
}

// Default reveal timing: a three second roll redrawn every 100ms.
const (
	DefaultTickInterval   = 100 * time.Millisecond
	DefaultRevealDuration = 3 * time.Second
)

// EngineConfig controls reveal timing.
type EngineConfig struct {
	TickInterval time.Duration
	Duration     time.Duration
	// Now stamps award records. Defaults to time.Now.
	Now func() time.Time
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.Duration <= 0 {
		c.Duration = DefaultRevealDuration
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// DrawOptions tunes a single draw request.
type DrawOptions struct {
	// Slots caps the number of winners. Zero draws every remaining slot.
	Slots int
}

// OutcomeStatus is how a draw cycle ended.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeCancelled OutcomeStatus = "cancelled"
	OutcomeConflict  OutcomeStatus = "conflict"
)

// Outcome is the final result of one draw cycle.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Tier    string        `json:"tier"`
	Winners []string      `json:"winners,omitempty"`
	Err     error         `json:"-"`
}

// Draw is a handle on one in-flight draw cycle.
type Draw struct {
	ID        uuid.UUID
	Tier      string
	Slots     int
	StartedAt time.Time

	stop       chan struct{}
	cancel     chan struct{}
	stopOnce   sync.Once
	cancelOnce sync.Once
	done       chan struct{}
	outcome    Outcome
	// closing is set once the outcome is decided. Guarded by the engine's mu.
	closing bool
}

// Done is closed once the cycle has returned to idle.
func (d *Draw) Done() <-chan struct{} {
	return d.done
}

// Outcome is only meaningful after Done is closed.
func (d *Draw) Outcome() Outcome {
	select {
	case <-d.done:
		return d.outcome
	default:
		return Outcome{Tier: d.Tier}
	}
}

// Wait blocks until the cycle ends or ctx is done.
func (d *Draw) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-d.done:
		return d.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// DrawEngine runs one draw cycle at a time against a pool and a ledger:
// validate, reveal on a ticker, then sample and commit the winners.
type DrawEngine struct {
	pool     *CandidatePool
	ledger   *PrizeLedger
	sampler  *rng.Sampler
	observer Observer
	cfg      EngineConfig

	mu      sync.Mutex
	state   State
	current *Draw
}

// NewDrawEngine wires an engine to its pool and ledger. observer may be nil.
func NewDrawEngine(pool *CandidatePool, ledger *PrizeLedger, sampler *rng.Sampler, observer Observer, cfg EngineConfig) *DrawEngine {
	if observer == nil {
		observer = ObserverFuncs{}
	}
	return &DrawEngine{
		pool:     pool,
		ledger:   ledger,
		sampler:  sampler,
		observer: observer,
		cfg:      cfg.withDefaults(),
	}
}

func (e *DrawEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Current returns the in-flight draw, or nil when idle.
func (e *DrawEngine) Current() *Draw {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// RequestDraw validates the request and, if it passes, starts the reveal.
// Failed preconditions return a *DrawRejectedError and leave the engine idle.
// The reveal stops when ctx is done, counting as a cancel.
func (e *DrawEngine) RequestDraw(ctx context.Context, tier string, opts DrawOptions) (*Draw, error) {
	tier = strings.TrimSpace(tier)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return nil, &DrawRejectedError{Tier: tier, Reason: ReasonDrawInProgress}
	}
	e.state = StateArmed

	slots, err := e.validate(tier, opts)
	if err != nil {
		e.state = StateIdle
		return nil, err
	}

	d := &Draw{
		ID:        uuid.New(),
		Tier:      tier,
		Slots:     slots,
		StartedAt: e.cfg.Now(),
		stop:      make(chan struct{}),
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.current = d
	e.state = StateRevealing
	logger.Infof("draw %s started: tier=%s slots=%d", d.ID, tier, slots)

	go e.run(ctx, d)
	return d, nil
}

func (e *DrawEngine) validate(tier string, opts DrawOptions) (int, error) {
	if _, ok := e.ledger.Tier(tier); !ok {
		return 0, &DrawRejectedError{Tier: tier, Reason: ReasonUnknownTier}
	}
	if e.pool.Len() == 0 {
		return 0, &DrawRejectedError{Tier: tier, Reason: ReasonEmptyPool}
	}
	remaining := e.ledger.RemainingSlots(tier)
	if remaining == 0 {
		return 0, &DrawRejectedError{Tier: tier, Reason: ReasonTierExhausted}
	}

	slots := remaining
	if opts.Slots > 0 && opts.Slots < remaining {
		slots = opts.Slots
	}
	if available := len(e.pool.Eligible(e.ledger)); available < slots {
		return 0, &DrawRejectedError{
			Tier:      tier,
			Reason:    ReasonInsufficientEligible,
			Needed:    slots,
			Available: available,
		}
	}
	return slots, nil
}

// Stop ends the reveal early and settles the draw. It reports whether a
// reveal was running.
func (e *DrawEngine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRevealing || e.current == nil || e.current.closing {
		return false
	}
	d := e.current
	d.stopOnce.Do(func() { close(d.stop) })
	return true
}

// Cancel aborts the reveal without recording anything. It is honored at the
// next loop boundary; wait on the draw's Done channel to know it took effect.
func (e *DrawEngine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRevealing || e.current == nil || e.current.closing {
		return false
	}
	d := e.current
	d.cancelOnce.Do(func() { close(d.cancel) })
	return true
}

func (e *DrawEngine) run(ctx context.Context, d *Draw) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	timer := time.NewTimer(e.cfg.Duration)
	defer timer.Stop()

	e.tick(d)
	for {
		select {
		case <-d.cancel:
			e.finish(d, Outcome{Status: OutcomeCancelled, Tier: d.Tier})
			return
		case <-ctx.Done():
			e.finish(d, Outcome{Status: OutcomeCancelled, Tier: d.Tier, Err: ctx.Err()})
			return
		case <-d.stop:
			e.settle(ctx, d)
			return
		case <-timer.C:
			e.settle(ctx, d)
			return
		case <-ticker.C:
			e.tick(d)
		}
	}
}

// tick shows a random subset of the current eligible pool. Display only.
func (e *DrawEngine) tick(d *Draw) {
	eligible := e.pool.Eligible(e.ledger)
	display, err := e.sampler.Sample(eligible, min(d.Slots, len(eligible)))
	if err != nil {
		return
	}
	e.observer.OnTick(d.Tier, display)
}

// settle moves to Settling under the lock, so a Cancel accepted before that
// point still wins and a later one is refused.
func (e *DrawEngine) settle(ctx context.Context, d *Draw) {
	e.mu.Lock()
	select {
	case <-d.cancel:
		e.mu.Unlock()
		e.finish(d, Outcome{Status: OutcomeCancelled, Tier: d.Tier})
		return
	default:
	}
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		e.finish(d, Outcome{Status: OutcomeCancelled, Tier: d.Tier, Err: err})
		return
	}
	e.state = StateSettling
	e.mu.Unlock()

	eligible := e.pool.Eligible(e.ledger)
	winners, err := e.sampler.Sample(eligible, d.Slots)
	if err != nil {
		err = &DrawRejectedError{Tier: d.Tier, Reason: ReasonInsufficientEligible, Needed: d.Slots, Available: len(eligible)}
	} else {
		err = e.ledger.Commit(d.Tier, winners, e.cfg.Now())
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDrawConflict, err)
		logger.Errorf("draw %s for tier %s aborted: %v", d.ID, d.Tier, err)
		e.finish(d, Outcome{Status: OutcomeConflict, Tier: d.Tier, Err: err})
		return
	}

	logger.Infof("draw %s completed: tier=%s winners=%v", d.ID, d.Tier, winners)
	e.finish(d, Outcome{Status: OutcomeCompleted, Tier: d.Tier, Winners: winners})
}

// finish tells the observer, then returns the engine to idle and releases
// waiters. No new cycle can start while the observer runs.
func (e *DrawEngine) finish(d *Draw, out Outcome) {
	e.mu.Lock()
	d.closing = true
	e.mu.Unlock()

	d.outcome = out
	switch out.Status {
	case OutcomeCompleted:
		e.observer.OnCompleted(d.Tier, out.Winners)
	case OutcomeConflict:
		e.observer.OnConflict(d.Tier, out.Err)
	case OutcomeCancelled:
		logger.Infof("draw %s for tier %s cancelled", d.ID, d.Tier)
		e.observer.OnCancelled(d.Tier)
	}

	e.mu.Lock()
	e.state = StateIdle
	e.current = nil
	e.mu.Unlock()
	close(d.done)
}
