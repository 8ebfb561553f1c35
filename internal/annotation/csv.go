package annotation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

// csvTimeLayout matches the timestamp format used by the spreadsheet
// annotation tables this export replaces.
const csvTimeLayout = "02/01/2006 15:04:05"

// WriteCSV renders records as a spreadsheet-compatible table for human
// review. Terms are embedded as a JSON object per row, mirroring the
// word-cloud payload column of the legacy annotation workbook.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	header := []string{"ID", "CertNumber", "CreatedAt", "Source", "Origin", "Version", "Terms"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		terms := map[string]int{}
		for _, term := range r.Terms {
			terms[term.Text] = term.Weight
		}
		termsJSON, err := json.Marshal(terms)
		if err != nil {
			return fmt.Errorf("marshal terms for %s: %w", r.CertNumber, err)
		}
		row := []string{
			r.ID,
			r.CertNumber,
			r.CreatedAt.UTC().Format(csvTimeLayout),
			r.Source,
			string(r.Origin),
			strconv.FormatInt(r.Version, 10),
			string(termsJSON),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.CertNumber, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ParseCSVTime parses a timestamp in the export layout. Exposed for tests
// and tooling that round-trip the CSV output.
func ParseCSVTime(value string) (time.Time, error) {
	return time.Parse(csvTimeLayout, value)
}
