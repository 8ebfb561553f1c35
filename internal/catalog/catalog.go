// Package catalog provides the read-only view over the product
// certification records published by the regulator. The upstream dump is a
// zipped CSV refreshed wholesale; the local copy is re-downloaded only
// when it passes the configured age.
package catalog

import (
	"archive/zip"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"encoding/csv"
)

// Record is one certification entry from the upstream dump. Immutable
// once ingested.
type Record struct {
	CertNumber       string
	Category         int
	HomologationDate time.Time
}

// Catalog holds the parsed records in file order.
type Catalog struct {
	records []Record
}

// New builds a catalog from already-ingested records, preserving order.
func New(records []Record) *Catalog {
	return &Catalog{records: records}
}

// Records returns the records in their original file order.
func (c *Catalog) Records() []Record { return c.records }

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Column headers of the upstream CSV we consume.
const (
	colCertNumber       = "Número de Homologação"
	colHomologationDate = "Data da Homologação"
	colCategory         = "Categoria do Produto"
)

const dateLayout = "02/01/2006"

// ParseZip reads the zipped CSV dump. Rows without a certification number
// are dropped; duplicate certification numbers keep the first occurrence,
// preserving file order.
func ParseZip(path string) (*Catalog, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog archive: %w", err)
	}
	defer zr.Close() //nolint:errcheck

	var csvFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			csvFile = f
			break
		}
	}
	if csvFile == nil {
		return nil, fmt.Errorf("catalog archive %s contains no csv file", path)
	}

	rc, err := csvFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer rc.Close() //nolint:errcheck

	return parseCSV(rc)
}

func parseCSV(r io.Reader) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	certIdx, ok := idx[colCertNumber]
	if !ok {
		return nil, fmt.Errorf("catalog csv missing column %q", colCertNumber)
	}
	dateIdx, hasDate := idx[colHomologationDate]
	categoryIdx, hasCategory := idx[colCategory]

	seen := make(map[string]struct{})
	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}
		if certIdx >= len(row) {
			continue
		}
		cert := strings.TrimSpace(row[certIdx])
		if cert == "" {
			continue
		}
		if _, dup := seen[cert]; dup {
			continue
		}
		seen[cert] = struct{}{}

		record := Record{CertNumber: cert}
		if hasDate && dateIdx < len(row) {
			if ts, err := time.Parse(dateLayout, strings.TrimSpace(row[dateIdx])); err == nil {
				record.HomologationDate = ts
			}
		}
		if hasCategory && categoryIdx < len(row) {
			if category, err := strconv.Atoi(strings.TrimSpace(row[categoryIdx])); err == nil {
				record.Category = category
			}
		}
		records = append(records, record)
	}
	return &Catalog{records: records}, nil
}
