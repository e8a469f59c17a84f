package services

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckydraw/internal/models"
)

func TestPrizeLedger_ConfigureTier(t *testing.T) {
	ledger := NewPrizeLedger()

	assert.ErrorIs(t, ledger.ConfigureTier("Gold", 0, "🏆", 1), ErrInvalidQuota)
	assert.ErrorIs(t, ledger.ConfigureTier(" ", 1, "", 1), ErrEmptyName)

	require.NoError(t, ledger.ConfigureTier("Gold", 2, "🏆", 2))
	require.NoError(t, ledger.ConfigureTier("Lucky", 6, "🍀", 1))
	require.NoError(t, ledger.ConfigureTier("Gold", 3, "🏆", 2), "upsert")

	tiers := ledger.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "Lucky", tiers[0].Name, "sorted by display order")
	assert.Equal(t, 3, tiers[1].Quota)

	t.Run("quota cannot drop below awards", func(t *testing.T) {
		require.NoError(t, ledger.Commit("Gold", []string{"A", "B"}, time.Now()))
		assert.ErrorIs(t, ledger.ConfigureTier("Gold", 1, "🏆", 2), ErrQuotaBelowAwarded)
		assert.NoError(t, ledger.ConfigureTier("Gold", 2, "🏆", 2))
		assert.True(t, ledger.IsExhausted("Gold"))
	})
}

func TestPrizeLedger_Commit(t *testing.T) {
	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier("Silver", 3, "🥈", 0))
	now := time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Commit("Silver", []string{"A", "B"}, now))
	assert.Equal(t, 1, ledger.RemainingSlots("Silver"))
	assert.Equal(t, 2, ledger.AwardedCount("Silver"))

	t.Run("over quota is all-or-nothing", func(t *testing.T) {
		err := ledger.Commit("Silver", []string{"C", "D"}, now)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, 1, qe.Remaining)
		assert.Equal(t, 2, qe.Requested)
		assert.Equal(t, 2, ledger.Len())
	})

	t.Run("previous winner cannot win again", func(t *testing.T) {
		assert.ErrorIs(t, ledger.Commit("Silver", []string{"A"}, now), ErrAlreadyAwarded)
	})

	t.Run("unknown tier", func(t *testing.T) {
		assert.ErrorIs(t, ledger.Commit("Bronze", []string{"C"}, now), ErrTierNotFound)
		assert.Zero(t, ledger.RemainingSlots("Bronze"))
	})

	t.Run("same name twice in one batch", func(t *testing.T) {
		l := NewPrizeLedger()
		require.NoError(t, l.ConfigureTier("Silver", 3, "", 0))
		assert.ErrorIs(t, l.Commit("Silver", []string{"C", "C"}, now), ErrDuplicateName)
		assert.Zero(t, l.Len())
	})

	assert.Equal(t, map[string]struct{}{"A": {}, "B": {}}, ledger.AwardedNames())
}

func TestPrizeLedger_ExportRecords(t *testing.T) {
	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier("Gold", 1, "", 0))
	require.NoError(t, ledger.ConfigureTier("Lucky", 5, "", 1))

	t0 := time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Commit("Lucky", []string{"A", "B"}, t0))
	require.NoError(t, ledger.Commit("Gold", []string{"C"}, t0.Add(time.Minute)))

	seq := ledger.ExportRecords()
	first := slices.Collect(seq)
	second := slices.Collect(seq)

	require.Len(t, first, 3)
	assert.Equal(t, first, second, "no commit in between, same sequence")
	assert.Equal(t, "C", first[0].ParticipantName, "most recent first")
	assert.Equal(t, "Gold", first[0].TierName)
	assert.Equal(t, "B", first[1].ParticipantName)

	t.Run("restartable sequence sees new commits", func(t *testing.T) {
		require.NoError(t, ledger.Commit("Lucky", []string{"D"}, t0.Add(2*time.Minute)))
		again := slices.Collect(seq)
		require.Len(t, again, 4)
		assert.Equal(t, "D", again[0].ParticipantName)
	})

	t.Run("early break", func(t *testing.T) {
		n := 0
		for range seq {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestPrizeLedger_ResetAndRestore(t *testing.T) {
	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier("Gold", 1, "🏆", 0))
	require.NoError(t, ledger.Commit("Gold", []string{"A"}, time.Now()))

	ledger.Reset()
	assert.Zero(t, ledger.Len())
	assert.Equal(t, 1, ledger.RemainingSlots("Gold"), "tier config survives reset")
	assert.Empty(t, ledger.AwardedNames())

	t.Run("restore rebuilds counts", func(t *testing.T) {
		ts := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
		ledger.Restore(
			[]models.PrizeTier{{Name: "Gold", Quota: 1, Icon: "🏆"}, {Name: "Lucky", Quota: 3, Order: 1}},
			[]models.AwardRecord{
				{ParticipantName: "A", TierName: "Lucky", Time: ts},
				{ParticipantName: "B", TierName: "Gold", Time: ts},
				{ParticipantName: "C", TierName: "Gold", Time: ts},
			},
		)
		assert.Equal(t, 2, ledger.RemainingSlots("Lucky"))
		assert.Equal(t, 0, ledger.RemainingSlots("Gold"))

		tier, ok := ledger.Tier("Gold")
		require.True(t, ok)
		assert.Equal(t, 2, tier.Quota, "quota raised to the restored award count")

		tiers, records := ledger.Snapshot()
		assert.Len(t, tiers, 2)
		assert.Equal(t, "A", records[0].ParticipantName, "snapshot keeps commit order")
	})
}

func TestPrizeLedger_TrimsTierNames(t *testing.T) {
	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier(" Gold ", 2, "", 0))

	tier, ok := ledger.Tier("Gold ")
	require.True(t, ok)
	assert.Equal(t, "Gold", tier.Name)

	require.NoError(t, ledger.Commit(" Gold", []string{" Ann "}, time.Now()))
	assert.Equal(t, 1, ledger.AwardedCount("Gold"))
	assert.Equal(t, 1, ledger.RemainingSlots(" Gold "))
	assert.Contains(t, ledger.AwardedNames(), "Ann")
	assert.ErrorIs(t, ledger.Commit("Gold", []string{" "}, time.Now()), ErrEmptyName)
}
