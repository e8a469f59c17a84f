package services

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"newlines", "Alice\nBob\r\nCarol", []string{"Alice", "Bob", "Carol"}},
		{"mixed separators", "张三，李四；王五, 赵六;钱七\t孙八", []string{"张三", "李四", "王五", "赵六", "钱七", "孙八"}},
		{"duplicates and blanks", "A, B,, A ,  ", []string{"A", "B"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNames(tt.in))
		})
	}
}

func TestReadNames(t *testing.T) {
	t.Run("csv takes the first column", func(t *testing.T) {
		in := "\ufeffAlice,engineering\nBob,sales\n\"Carol\",ops\n"
		names, err := ReadNames(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names)
	})

	t.Run("plain text roster", func(t *testing.T) {
		names, err := ReadNames(strings.NewReader("Alice\nBob\nAlice\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob"}, names)
	})
}

func TestWriteResultsCSV(t *testing.T) {
	ledger := NewPrizeLedger()
	require.NoError(t, ledger.ConfigureTier("Gold", 1, "", 0))
	require.NoError(t, ledger.ConfigureTier("Lucky", 2, "", 1))
	ts := time.Date(2026, 1, 30, 18, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.Commit("Lucky", []string{"A"}, ts))
	require.NoError(t, ledger.Commit("Gold", []string{"B"}, ts.Add(time.Second)))

	var buf bytes.Buffer
	require.NoError(t, WriteResultsCSV(&buf, ledger.ExportRecords()))

	body := buf.String()
	require.True(t, strings.HasPrefix(body, "\ufeff"))
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(body, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		ResultsHeader,
		{"Gold", "B", "2026-01-30T18:00:01Z"},
		{"Lucky", "A", "2026-01-30T18:00:00Z"},
	}, rows)
}
