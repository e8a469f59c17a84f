package services

import (
	"strings"
	"sync"
)

// CandidatePool holds the registered participants in insertion order.
type CandidatePool struct {
	mu    sync.RWMutex
	names []string
	index map[string]struct{}
}

// BulkResult reports what BulkAdd did.
type BulkResult struct {
	Added              int `json:"added"`
	SkippedAsDuplicate int `json:"skippedAsDuplicate"`
}

// NewCandidatePool returns an empty pool.
func NewCandidatePool() *CandidatePool {
	return &CandidatePool{index: make(map[string]struct{})}
}

// Add appends name to the pool. Surrounding whitespace is trimmed; the
// comparison is exact and case-sensitive.
func (p *CandidatePool) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.index[name]; ok {
		return ErrDuplicateName
	}
	p.insert(name)
	return nil
}

// BulkAdd inserts every new name from names, keeping first occurrences.
// Blank entries are dropped without being counted.
func (p *CandidatePool) BulkAdd(names []string) BulkResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res BulkResult
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := p.index[name]; ok {
			res.SkippedAsDuplicate++
			continue
		}
		p.insert(name)
		res.Added++
	}
	return res
}

func (p *CandidatePool) insert(name string) {
	p.names = append(p.names, name)
	p.index[name] = struct{}{}
}

// Remove deletes name, trimmed like in Add. Unknown names are ignored.
func (p *CandidatePool) Remove(name string) {
	name = strings.TrimSpace(name)
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.index[name]; !ok {
		return
	}
	delete(p.index, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Clear empties the pool. Award records that mention removed names stay valid.
func (p *CandidatePool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = nil
	p.index = make(map[string]struct{})
}

// Names returns a copy of the pool in display order.
func (p *CandidatePool) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

func (p *CandidatePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.names)
}

func (p *CandidatePool) Contains(name string) bool {
	name = strings.TrimSpace(name)
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.index[name]
	return ok
}

// Eligible returns the participants that have not won anything in ledger.
// The result is a snapshot, later edits do not show up in it.
func (p *CandidatePool) Eligible(ledger *PrizeLedger) []string {
	awarded := ledger.AwardedNames()

	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.names))
	for _, n := range p.names {
		if _, won := awarded[n]; !won {
			out = append(out, n)
		}
	}
	return out
}
