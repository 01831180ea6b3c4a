// Package csvio reads and writes the textual log exchange format:
//
//	Date,Fruit,Origin,Rating[,Region[,Store]]
//
// Fields follow RFC 4180, so origins and stores containing commas or quotes
// survive a round trip.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fruity/internal/catalog"
	"fruity/internal/logging"
	"fruity/internal/types"
)

// Header is the column row written on export.
// Region and Store are optional on import.
var Header = []string{"Date", "Fruit", "Origin", "Rating", "Region", "Store"}

const minFields = 4

// RowError describes one rejected row. Line is the input line for Parse and
// the 1-based row position for Import.
type RowError struct {
	Line  int
	Fruit string
	Err   error
}

func (e RowError) Error() string {
	if e.Fruit != "" {
		return fmt.Sprintf("line %d (%s): %v", e.Line, e.Fruit, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Options tune Parse.
type Options struct {
	// DefaultRegion fills rows without a Region column.
	DefaultRegion string
	// Catalog, when set, rejects fruits not known in any language.
	Catalog *catalog.Catalog
}

// Parse reads rows using defaultRegion for rows without a region. Malformed
// rows are reported in skipped and do not stop the parse; err is only set
// when r itself fails.
func Parse(r io.Reader, defaultRegion string) (rows []types.NewLogEntry, skipped []RowError, err error) {
	return ParseWith(r, Options{DefaultRegion: defaultRegion})
}

// ParseWith is Parse with explicit options.
func ParseWith(r io.Reader, opts Options) (rows []types.NewLogEntry, skipped []RowError, err error) {
	region := strings.TrimSpace(opts.DefaultRegion)
	if region == "" {
		region = types.DefaultRegion
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	first := true
	for {
		record, rerr := cr.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			var perr *csv.ParseError
			if errors.As(rerr, &perr) {
				skipped = append(skipped, RowError{Line: perr.StartLine, Err: perr.Err})
				continue
			}
			return rows, skipped, fmt.Errorf("failed to read CSV: %w", rerr)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}
		if blank(record) {
			continue
		}

		entry, perr := parseRecord(record, region)
		if perr == nil && opts.Catalog != nil {
			if _, ok := opts.Catalog.Lookup(entry.Fruit); !ok {
				perr = opts.Catalog.Validate(entry.Fruit, types.DefaultLanguage)
			}
		}
		if perr != nil {
			logging.CSVWarn("skipping line %d: %v", line, perr)
			skipped = append(skipped, RowError{Line: line, Fruit: entry.Fruit, Err: perr})
			continue
		}
		rows = append(rows, entry)
	}

	logging.CSV("parsed %d rows, skipped %d", len(rows), len(skipped))
	return rows, skipped, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")), "date")
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, region string) (types.NewLogEntry, error) {
	if len(record) < minFields {
		return types.NewLogEntry{}, fmt.Errorf("expected at least %d fields, got %d", minFields, len(record))
	}
	entry := types.NewLogEntry{
		Date:   strings.TrimSpace(record[0]),
		Fruit:  strings.TrimSpace(record[1]),
		Origin: strings.TrimSpace(record[2]),
	}
	if len(record) > minFields {
		entry.UserRegion = strings.TrimSpace(record[4])
	}
	if len(record) > minFields+1 {
		entry.Store = strings.TrimSpace(record[5])
	}
	if entry.UserRegion == "" {
		entry.UserRegion = region
	}

	rating, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return entry, &types.ValidationError{Field: "rating", Value: record[3], Reason: "not a number", Err: err}
	}
	entry.Rating = rating

	return entry, entry.Validate()
}

// Write renders logs with a header row, in collection order.
func Write(w io.Writer, logs []types.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, l := range logs {
		record := []string{
			l.Date,
			l.Fruit,
			l.Origin,
			strconv.Itoa(l.Rating),
			l.RegionOr(types.DefaultRegion),
			l.Store,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	logging.CSV("exported %d rows", len(logs))
	return nil
}
