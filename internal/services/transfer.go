package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strings"
	"time"

	"luckydraw/internal/models"
)

// nameSeparators covers newlines, ASCII and full-width commas and
// semicolons, and any whitespace.
var nameSeparators = regexp.MustCompile(`[\s,;，；]+`)

// ParseNames splits free text into participant names. Blank entries are
// dropped and repeated names are kept once, in first-seen order.
func ParseNames(text string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, n := range nameSeparators.Split(text, -1) {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// ReadNames reads an uploaded roster. Every CSV record contributes its
// first column; plain text with one name per line parses the same way.
func ReadNames(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var b strings.Builder
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading roster: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		b.WriteString(strings.TrimPrefix(record[0], "\ufeff"))
		b.WriteByte('\n')
	}
	return ParseNames(b.String()), nil
}

// ResultsHeader is the header row of the results export.
var ResultsHeader = []string{"tier", "name", "time"}

// WriteResultsCSV writes one row per award record, most recent first, with a
// BOM so spreadsheet tools pick up UTF-8.
func WriteResultsCSV(w io.Writer, records iter.Seq[models.AwardRecord]) error {
	if _, err := w.Write([]byte("\xef\xbb\xbf")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ResultsHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for rec := range records {
		row := []string{rec.TierName, rec.ParticipantName, rec.Time.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
