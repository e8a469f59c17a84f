package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidatePool_Add(t *testing.T) {
	pool := NewCandidatePool()

	require.NoError(t, pool.Add("Alice"))
	require.NoError(t, pool.Add("  Bob "))

	t.Run("exact duplicate is rejected", func(t *testing.T) {
		assert.ErrorIs(t, pool.Add("Alice"), ErrDuplicateName)
		assert.ErrorIs(t, pool.Add("Bob"), ErrDuplicateName)
	})

	t.Run("comparison is case-sensitive", func(t *testing.T) {
		assert.NoError(t, pool.Add("alice"))
	})

	t.Run("blank names are rejected", func(t *testing.T) {
		assert.ErrorIs(t, pool.Add(""), ErrEmptyName)
		assert.ErrorIs(t, pool.Add(" \t "), ErrEmptyName)
	})

	assert.Equal(t, []string{"Alice", "Bob", "alice"}, pool.Names())
}

func TestCandidatePool_BulkAdd(t *testing.T) {
	t.Run("duplicates and blanks in the input", func(t *testing.T) {
		pool := NewCandidatePool()
		res := pool.BulkAdd([]string{"A", "B", "A", " "})

		assert.Equal(t, BulkResult{Added: 2, SkippedAsDuplicate: 1}, res)
		assert.Equal(t, []string{"A", "B"}, pool.Names())
	})

	t.Run("names already in the pool are skipped", func(t *testing.T) {
		pool := NewCandidatePool()
		require.NoError(t, pool.Add("B"))

		res := pool.BulkAdd([]string{"A", "B", "C"})
		assert.Equal(t, BulkResult{Added: 2, SkippedAsDuplicate: 1}, res)
		assert.Equal(t, []string{"B", "A", "C"}, pool.Names())
	})
}

func TestCandidatePool_RemoveAndClear(t *testing.T) {
	pool := NewCandidatePool()
	pool.BulkAdd([]string{"A", "B", "C"})

	pool.Remove("B")
	pool.Remove("missing")
	assert.Equal(t, []string{"A", "C"}, pool.Names())
	assert.False(t, pool.Contains("B"))

	require.NoError(t, pool.Add("B"), "a removed name can be added again")

	pool.Clear()
	assert.Zero(t, pool.Len())
	assert.Empty(t, pool.Names())
}

func TestCandidatePool_NeverHoldsDuplicates(t *testing.T) {
	pool := NewCandidatePool()
	ops := []func(){
		func() { _ = pool.Add("A") },
		func() { pool.BulkAdd([]string{"A", "B", "B", "C"}) },
		func() { pool.Remove("A") },
		func() { _ = pool.Add("A") },
		func() { pool.BulkAdd([]string{"C", "A", "D"}) },
		func() { _ = pool.Add("D") },
	}
	for _, op := range ops {
		op()
		seen := make(map[string]bool)
		for _, n := range pool.Names() {
			require.False(t, seen[n], "duplicate %q", n)
			seen[n] = true
		}
	}
}

func TestCandidatePool_Eligible(t *testing.T) {
	pool := NewCandidatePool()
	pool.BulkAdd([]string{"A", "B", "C"})

	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier("Gold", 1, "", 0))
	require.NoError(t, ledger.Commit("Gold", []string{"A"}, time.Now()))

	eligible := pool.Eligible(ledger)
	assert.Equal(t, []string{"B", "C"}, eligible)
	assert.True(t, pool.Contains("A"), "the winner stays in the raw pool")

	t.Run("result is a snapshot", func(t *testing.T) {
		pool.Remove("B")
		assert.Equal(t, []string{"B", "C"}, eligible)
	})

	t.Run("clearing the pool keeps past records", func(t *testing.T) {
		pool.Clear()
		assert.Equal(t, 1, ledger.Len())
		assert.Empty(t, pool.Eligible(ledger))
	})
}

func TestCandidatePool_TrimsLookups(t *testing.T) {
	pool := NewCandidatePool()
	require.NoError(t, pool.Add("Ann"))

	assert.True(t, pool.Contains(" Ann "))
	pool.Remove(" Ann\t")
	assert.Zero(t, pool.Len())
}
