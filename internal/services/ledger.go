package services

import (
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"luckydraw/internal/models"
)

// PrizeLedger holds the tier catalog and the append-only award history.
type PrizeLedger struct {
	mu      sync.RWMutex
	tiers   map[string]*models.PrizeTier
	records []models.AwardRecord // commit order, oldest first
	awarded map[string]int       // tier name -> award count
	winners map[string]struct{}  // participant names with at least one award
}

// NewPrizeLedger returns a ledger with no tiers and no records.
func NewPrizeLedger() *PrizeLedger {
	return &PrizeLedger{
		tiers:   make(map[string]*models.PrizeTier),
		awarded: make(map[string]int),
		winners: make(map[string]struct{}),
	}
}

// ConfigureTier creates or updates a tier. The quota can be raised at any
// time but never lowered below what has already been awarded.
func (l *PrizeLedger) ConfigureTier(name string, quota int, icon string, order int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if quota < 1 {
		return ErrInvalidQuota
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if quota < l.awarded[name] {
		return ErrQuotaBelowAwarded
	}
	l.tiers[name] = &models.PrizeTier{Name: name, Icon: icon, Quota: quota, Order: order}
	return nil
}

// Tier returns the tier called name. Names are trimmed like in ConfigureTier.
func (l *PrizeLedger) Tier(name string) (models.PrizeTier, bool) {
	name = strings.TrimSpace(name)
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.tiers[name]
	if !ok {
		return models.PrizeTier{}, false
	}
	return *t, true
}

// Tiers returns all tiers sorted by display order, then by name.
func (l *PrizeLedger) Tiers() []models.TierStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.TierStatus, 0, len(l.tiers))
	for _, t := range l.tiers {
		remaining := l.remainingLocked(t.Name)
		out = append(out, models.TierStatus{
			PrizeTier: *t,
			Awarded:   l.awarded[t.Name],
			Remaining: remaining,
			Exhausted: remaining == 0,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (l *PrizeLedger) AwardedCount(tier string) int {
	tier = strings.TrimSpace(tier)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.awarded[tier]
}

// RemainingSlots is max(0, quota - awarded). Unknown tiers have no slots.
func (l *PrizeLedger) RemainingSlots(tier string) int {
	tier = strings.TrimSpace(tier)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.remainingLocked(tier)
}

func (l *PrizeLedger) remainingLocked(tier string) int {
	t, ok := l.tiers[tier]
	if !ok {
		return 0
	}
	return max(0, t.Quota-l.awarded[tier])
}

func (l *PrizeLedger) IsExhausted(tier string) bool {
	return l.RemainingSlots(tier) == 0
}

// AwardedNames returns the set of participants holding at least one award.
func (l *PrizeLedger) AwardedNames() map[string]struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]struct{}, len(l.winners))
	for n := range l.winners {
		out[n] = struct{}{}
	}
	return out
}

// Commit appends one record per name, all stamped with ts. Either every
// record is added or none is.
func (l *PrizeLedger) Commit(tier string, names []string, ts time.Time) error {
	tier = strings.TrimSpace(tier)
	trimmed := make([]string, len(names))
	for i, n := range names {
		if trimmed[i] = strings.TrimSpace(n); trimmed[i] == "" {
			return ErrEmptyName
		}
	}
	names = trimmed

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.tiers[tier]; !ok {
		return ErrTierNotFound
	}
	if remaining := l.remainingLocked(tier); len(names) > remaining {
		return &QuotaExceededError{Tier: tier, Requested: len(names), Remaining: remaining}
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, won := l.winners[n]; won {
			return ErrAlreadyAwarded
		}
		if _, dup := seen[n]; dup {
			return ErrDuplicateName
		}
		seen[n] = struct{}{}
	}

	for _, n := range names {
		l.records = append(l.records, models.AwardRecord{ParticipantName: n, TierName: tier, Time: ts})
		l.winners[n] = struct{}{}
	}
	l.awarded[tier] += len(names)
	return nil
}

// ExportRecords yields the award history, most recent first. Each iteration
// works on the records present when it starts, so the sequence can be
// ranged over again to see newer commits.
func (l *PrizeLedger) ExportRecords() iter.Seq[models.AwardRecord] {
	return func(yield func(models.AwardRecord) bool) {
		l.mu.RLock()
		recs := make([]models.AwardRecord, len(l.records))
		copy(recs, l.records)
		l.mu.RUnlock()

		for i := len(recs) - 1; i >= 0; i-- {
			if !yield(recs[i]) {
				return
			}
		}
	}
}

func (l *PrizeLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Reset drops every award record. Tiers are kept.
func (l *PrizeLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	l.awarded = make(map[string]int)
	l.winners = make(map[string]struct{})
}

// Restore replaces the ledger content with a persisted snapshot. Records are
// taken in the given (oldest first) order. A tier whose stored quota is below
// its restored award count has its quota raised to that count.
func (l *PrizeLedger) Restore(tiers []models.PrizeTier, records []models.AwardRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tiers = make(map[string]*models.PrizeTier, len(tiers))
	for i := range tiers {
		t := tiers[i]
		l.tiers[t.Name] = &t
	}
	l.records = append([]models.AwardRecord(nil), records...)
	l.awarded = make(map[string]int)
	l.winners = make(map[string]struct{})
	for _, r := range records {
		l.awarded[r.TierName]++
		l.winners[r.ParticipantName] = struct{}{}
	}
	for name, n := range l.awarded {
		if t, ok := l.tiers[name]; ok && t.Quota < n {
			t.Quota = n
		}
	}
}

// Snapshot returns tiers in display order and records oldest first.
func (l *PrizeLedger) Snapshot() ([]models.PrizeTier, []models.AwardRecord) {
	statuses := l.Tiers()
	tiers := make([]models.PrizeTier, len(statuses))
	for i, s := range statuses {
		tiers[i] = s.PrizeTier
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return tiers, append([]models.AwardRecord(nil), l.records...)
}
