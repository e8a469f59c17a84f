package services

import (
	"context"
	"errors"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/logger"

	"luckydraw/internal/metrics"
	"luckydraw/internal/models"
	"luckydraw/internal/rng"
)

// SnapshotStore is the durable side of a session. Load reports false when
// nothing was stored for the tenant.
type SnapshotStore interface {
	Load(ctx context.Context, tenantID string) (models.Snapshot, bool, error)
	Delete(ctx context.Context, tenantID string) error
}

// SnapshotSink accepts snapshots for background persistence. Enqueue must
// not block. Forget discards queued snapshots and deletes the stored one; no
// snapshot enqueued before it may be written after it returns.
type SnapshotSink interface {
	Enqueue(tenantID string, snap models.Snapshot)
	Forget(ctx context.Context, tenantID string) error
}

// ServiceConfig configures every session the service creates.
type ServiceConfig struct {
	// Catalog seeds the tiers of a new session.
	Catalog []models.PrizeTier
	// DefaultParticipants seeds the pool of a new session.
	DefaultParticipants []string
	Engine              EngineConfig
	SessionTTL          time.Duration

	Sampler *rng.Sampler  // nil: a CSPRNG-backed sampler
	Store   SnapshotStore // optional
	Sink    SnapshotSink  // optional
}

// LotterySession holds the data for a single user/tenant.
type LotterySession struct {
	TenantID     string
	Pool         *CandidatePool
	Ledger       *PrizeLedger
	Engine       *DrawEngine
	LastActivity time.Time

	// mu serializes edits against draw requests so the pool stays frozen
	// while a draw is running.
	mu sync.Mutex
	// persistMu orders snapshot writes against the session being dropped.
	persistMu sync.Mutex
	ctx       context.Context
	cancel context.CancelFunc
	events *broadcaster
}

// LotteryService manages multiple lottery sessions.
type LotteryService struct {
	cfg     ServiceConfig
	sampler *rng.Sampler

	mu       sync.RWMutex
	sessions map[string]*LotterySession // Key: tenantID
}

// NewLotteryService creates and initializes a new LotteryService.
func NewLotteryService(cfg ServiceConfig) (*LotteryService, error) {
	sampler := cfg.Sampler
	if sampler == nil {
		var err error
		if sampler, err = rng.NewSampler(nil); err != nil {
			return nil, err
		}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	return &LotteryService{
		cfg:      cfg,
		sampler:  sampler,
		sessions: make(map[string]*LotterySession),
	}, nil
}

// getSession returns a session for a tenant, creating one if it doesn't exist.
// A new session is restored from the store without holding the service lock.
func (s *LotteryService) getSession(tenantID string) *LotterySession {
	s.mu.Lock()
	if session, exists := s.sessions[tenantID]; exists {
		session.LastActivity = time.Now()
		s.mu.Unlock()
		return session
	}
	s.mu.Unlock()

	fresh := s.newSession(tenantID)

	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[tenantID]
	if exists {
		// Another caller won the race.
		fresh.cancel()
	} else {
		session = fresh
		s.sessions[tenantID] = session
		metrics.SetActiveSessions(len(s.sessions))
	}
	session.LastActivity = time.Now()
	return session
}

func (s *LotteryService) newSession(tenantID string) *LotterySession {
	ctx, cancel := context.WithCancel(context.Background())
	session := &LotterySession{
		TenantID: tenantID,
		Pool:     NewCandidatePool(),
		Ledger:   NewPrizeLedger(),
		ctx:      ctx,
		cancel:   cancel,
		events:   newBroadcaster(),
	}
	session.Engine = NewDrawEngine(session.Pool, session.Ledger, s.sampler, &sessionObserver{svc: s, session: session}, s.cfg.Engine)

	if s.restore(session) {
		return session
	}
	for _, t := range s.cfg.Catalog {
		if err := session.Ledger.ConfigureTier(t.Name, t.Quota, t.Icon, t.Order); err != nil {
			logger.Warningf("skipping catalog tier %q: %v", t.Name, err)
		}
	}
	session.Pool.BulkAdd(s.cfg.DefaultParticipants)
	return session
}

func (s *LotteryService) restore(session *LotterySession) bool {
	if s.cfg.Store == nil {
		return false
	}
	snap, ok, err := s.cfg.Store.Load(session.ctx, session.TenantID)
	if err != nil {
		logger.Errorf("loading snapshot for tenant %s: %v", session.TenantID, err)
		return false
	}
	if !ok {
		return false
	}
	session.Pool.BulkAdd(snap.Participants)
	session.Ledger.Restore(snap.Tiers, snap.Records)
	logger.Infof("restored tenant %s: %d participants, %d records", session.TenantID, len(snap.Participants), len(snap.Records))
	return true
}

// SnapshotOf builds the persisted shape of a session.
func SnapshotOf(session *LotterySession) models.Snapshot {
	tiers, records := session.Ledger.Snapshot()
	return models.Snapshot{
		Participants: session.Pool.Names(),
		Tiers:        tiers,
		Records:      records,
	}
}

// persist enqueues the session's snapshot unless the session was dropped.
func (s *LotteryService) persist(session *LotterySession) {
	if s.cfg.Sink == nil {
		return
	}
	session.persistMu.Lock()
	defer session.persistMu.Unlock()
	if session.ctx.Err() != nil {
		return
	}
	s.cfg.Sink.Enqueue(session.TenantID, SnapshotOf(session))
}

// edit runs fn with draws locked out, then persists the session.
func (s *LotteryService) edit(tenantID string, fn func(*LotterySession) error) error {
	session := s.getSession(tenantID)
	session.mu.Lock()
	if session.Engine.State() != StateIdle {
		session.mu.Unlock()
		return ErrDrawActive
	}
	err := fn(session)
	session.mu.Unlock()
	if err != nil {
		return err
	}
	s.persist(session)
	return nil
}

// GetParticipants returns the participants for a specific tenant.
func (s *LotteryService) GetParticipants(tenantID string) []string {
	return s.getSession(tenantID).Pool.Names()
}

// GetEligibleParticipants returns the participants that have not won yet.
func (s *LotteryService) GetEligibleParticipants(tenantID string) []string {
	session := s.getSession(tenantID)
	return session.Pool.Eligible(session.Ledger)
}

// AddParticipant adds a new participant for a specific tenant.
func (s *LotteryService) AddParticipant(tenantID, name string) error {
	return s.edit(tenantID, func(session *LotterySession) error {
		return session.Pool.Add(name)
	})
}

// ImportParticipants bulk-adds names, skipping the ones already present.
func (s *LotteryService) ImportParticipants(tenantID string, names []string) (BulkResult, error) {
	var res BulkResult
	err := s.edit(tenantID, func(session *LotterySession) error {
		res = session.Pool.BulkAdd(names)
		return nil
	})
	return res, err
}

func (s *LotteryService) RemoveParticipant(tenantID, name string) error {
	return s.edit(tenantID, func(session *LotterySession) error {
		session.Pool.Remove(name)
		return nil
	})
}

// ClearParticipants empties the pool. Award history is kept.
func (s *LotteryService) ClearParticipants(tenantID string) error {
	return s.edit(tenantID, func(session *LotterySession) error {
		session.Pool.Clear()
		return nil
	})
}

// GetTiers returns the tiers with their live award counts.
func (s *LotteryService) GetTiers(tenantID string) []models.TierStatus {
	return s.getSession(tenantID).Ledger.Tiers()
}

// ConfigureTier creates or updates a tier for a specific tenant.
func (s *LotteryService) ConfigureTier(tenantID, name string, quota int, icon string, order int) error {
	return s.edit(tenantID, func(session *LotterySession) error {
		return session.Ledger.ConfigureTier(name, quota, icon, order)
	})
}

// StartDraw requests a draw on the tenant's engine. The reveal runs in the
// background and is tied to the session, not to the caller's request.
func (s *LotteryService) StartDraw(tenantID, tier string, opts DrawOptions) (*Draw, error) {
	session := s.getSession(tenantID)
	session.mu.Lock()
	defer session.mu.Unlock()

	d, err := session.Engine.RequestDraw(session.ctx, tier, opts)
	if err != nil {
		var rej *DrawRejectedError
		if errors.As(err, &rej) {
			metrics.RecordRejection(string(rej.Reason))
		}
		logger.Infof("tenant %s: %v", tenantID, err)
		return nil, err
	}
	return d, nil
}

// StopDraw ends the current reveal early and settles it.
func (s *LotteryService) StopDraw(tenantID string) bool {
	return s.getSession(tenantID).Engine.Stop()
}

// CancelDraw aborts the current reveal. Nothing is recorded.
func (s *LotteryService) CancelDraw(tenantID string) bool {
	return s.getSession(tenantID).Engine.Cancel()
}

// DrawState returns the engine phase and the in-flight draw, if any.
func (s *LotteryService) DrawState(tenantID string) (State, *Draw) {
	engine := s.getSession(tenantID).Engine
	return engine.State(), engine.Current()
}

// GetLotteryResults returns the award records, most recent first.
func (s *LotteryService) GetLotteryResults(tenantID string) []models.AwardRecord {
	return slices.Collect(s.ExportRecords(tenantID))
}

// ExportRecords returns the tenant's restartable record sequence.
func (s *LotteryService) ExportRecords(tenantID string) iter.Seq[models.AwardRecord] {
	return s.getSession(tenantID).Ledger.ExportRecords()
}

// ResetResults clears the award history. Tiers and participants are kept.
func (s *LotteryService) ResetResults(tenantID string) error {
	return s.edit(tenantID, func(session *LotterySession) error {
		session.Ledger.Reset()
		return nil
	})
}

// Subscribe streams the tenant's engine events until cancel is called or
// the session is dropped.
func (s *LotteryService) Subscribe(tenantID string) (<-chan Event, func()) {
	return s.getSession(tenantID).events.subscribe()
}

// Snapshot returns the persisted shape of the tenant's session.
func (s *LotteryService) Snapshot(tenantID string) models.Snapshot {
	return SnapshotOf(s.getSession(tenantID))
}

// SessionCount returns how many sessions are held in memory.
func (s *LotteryService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CleanUpInactiveSessions drops sessions idle for longer than the configured
// TTL. Their snapshots stay in the store. It returns how many were removed.
func (s *LotteryService) CleanUpInactiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for tenantID, session := range s.sessions {
		if time.Since(session.LastActivity) > s.cfg.SessionTTL && session.Engine.State() == StateIdle {
			logger.Infof("dropping inactive session for tenant: %s", tenantID)
			s.drop(tenantID, session)
			removed++
		}
	}
	metrics.SetActiveSessions(len(s.sessions))
	return removed
}

// ClearSession removes all data associated with a specific tenant,
// including its stored snapshot.
func (s *LotteryService) ClearSession(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	if session, ok := s.sessions[tenantID]; ok {
		s.drop(tenantID, session)
	}
	metrics.SetActiveSessions(len(s.sessions))
	s.mu.Unlock()

	logger.Infof("Cleared session for tenant: %s", tenantID)
	switch {
	case s.cfg.Sink != nil:
		return s.cfg.Sink.Forget(ctx, tenantID)
	case s.cfg.Store != nil:
		return s.cfg.Store.Delete(ctx, tenantID)
	}
	return nil
}

// Close cancels every in-flight draw and waits for the reveals to stop.
func (s *LotteryService) Close() {
	s.mu.Lock()
	var pending []*Draw
	for tenantID, session := range s.sessions {
		if d := session.Engine.Current(); d != nil {
			pending = append(pending, d)
		}
		s.drop(tenantID, session)
	}
	metrics.SetActiveSessions(0)
	s.mu.Unlock()

	for _, d := range pending {
		<-d.Done()
	}
}

func (s *LotteryService) drop(tenantID string, session *LotterySession) {
	session.persistMu.Lock()
	session.cancel()
	session.persistMu.Unlock()
	session.events.closeAll()
	delete(s.sessions, tenantID)
}

// sessionObserver forwards engine events to subscribers, metrics and the
// snapshot sink.
type sessionObserver struct {
	svc     *LotteryService
	session *LotterySession
}

func (o *sessionObserver) OnTick(tier string, display []string) {
	o.session.events.publish(Event{Type: EventTick, Tier: tier, Names: display, Time: time.Now()})
}

func (o *sessionObserver) OnCompleted(tier string, winners []string) {
	metrics.RecordDraw(string(OutcomeCompleted), len(winners))
	o.svc.persist(o.session)
	o.session.events.publish(Event{Type: EventCompleted, Tier: tier, Names: winners, Time: time.Now()})
}

func (o *sessionObserver) OnConflict(tier string, err error) {
	metrics.RecordDraw(string(OutcomeConflict), 0)
	o.session.events.publish(Event{Type: EventConflict, Tier: tier, Error: err.Error(), Time: time.Now()})
}

func (o *sessionObserver) OnCancelled(tier string) {
	metrics.RecordDraw(string(OutcomeCancelled), 0)
	o.session.events.publish(Event{Type: EventCancelled, Tier: tier, Time: time.Now()})
}
