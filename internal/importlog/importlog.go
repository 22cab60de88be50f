// Package importlog keeps a CSV history of extracted documents.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Record is one row in the import history.
type Record struct {
	Timestamp time.Time
	Importer  string
	Account   string
	File      string
	Entries   int
	FirstDate time.Time
	LastDate  time.Time
}

// Header is the CSV header of the history file.
const Header = "timestamp,importer,account,file,entries,first_date,last_date"

const (
	numFields    = 7
	dateFormat   = "2006-01-02"
	colTimestamp = 0
	colImporter  = 1
	colAccount   = 2
	colFile      = 3
	colEntries   = 4
	colFirstDate = 5
	colLastDate  = 6
)

// MarshalRecord converts a Record to a CSV row. Zero dates are left blank.
func MarshalRecord(r Record) []string {
	row := make([]string, numFields)
	row[colTimestamp] = r.Timestamp.Format(time.RFC3339)
	row[colImporter] = r.Importer
	row[colAccount] = r.Account
	row[colFile] = r.File
	row[colEntries] = strconv.Itoa(r.Entries)
	row[colFirstDate] = formatDate(r.FirstDate)
	row[colLastDate] = formatDate(r.LastDate)
	return row
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(row []string) (Record, error) {
	if len(row) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	ts, err := time.Parse(time.RFC3339, row[colTimestamp])
	if err != nil {
		return Record{}, fmt.Errorf("parsing timestamp %q: %w", row[colTimestamp], err)
	}
	n, err := strconv.Atoi(row[colEntries])
	if err != nil {
		return Record{}, fmt.Errorf("parsing entries %q: %w", row[colEntries], err)
	}
	first, err := parseDate(row[colFirstDate])
	if err != nil {
		return Record{}, err
	}
	last, err := parseDate(row[colLastDate])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Timestamp: ts,
		Importer:  row[colImporter],
		Account:   row[colAccount],
		File:      row[colFile],
		Entries:   n,
		FirstDate: first,
		LastDate:  last,
	}, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}

// Append writes records to the history at path, creating the file and header
// if needed.
func Append(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import history: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range records {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all records in the history at path. A missing file has none.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import history: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import history CSV: %w", err)
	}

	if len(rows) <= 1 {
		return nil, nil
	}

	var records []Record
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LastByFile returns the most recent record for each file base name.
func LastByFile(records []Record) map[string]Record {
	out := make(map[string]Record, len(records))
	for _, r := range records {
		key := filepath.Base(r.File)
		if prev, ok := out[key]; !ok || !r.Timestamp.Before(prev.Timestamp) {
			out[key] = r
		}
	}
	return out
}
