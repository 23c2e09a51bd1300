// Package guestlist reads guest lists exported from Facebook events.
package guestlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrMalformedInput = errors.New("malformed guest list")

// GoingMarker is the marker Facebook writes for guests who answered "Going".
const GoingMarker = "Going"

// Record is one row of a guest list.
type Record struct {
	Line         int
	FacebookName string
	Marker       string
}

// Policy decides which records count as attendance.
type Policy int

const (
	// RequireGoing only counts rows marked Going.
	RequireGoing Policy = iota
	// AllListed counts every listed row.
	AllListed
)

// Attending reports whether a record is an attendance under the policy.
func (p Policy) Attending(r Record) bool {
	if p == AllListed {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Marker), GoingMarker)
}

func (p Policy) String() string {
	if p == AllListed {
		return "all-listed"
	}
	return "require-going"
}

// ReadFile reads a comma-separated guest list from path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening guest list: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read parses a guest list. The first row is a header and is skipped; every
// other row needs at least the Facebook name and the attendance marker.
func Read(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}

		line, _ := reader.FieldPos(0)
		if len(row) < 2 {
			return nil, fmt.Errorf("%w: line %d: expected name and attendance marker, got %d field(s)", ErrMalformedInput, line, len(row))
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			return nil, fmt.Errorf("%w: line %d: empty guest name", ErrMalformedInput, line)
		}

		records = append(records, Record{
			Line:         line,
			FacebookName: name,
			Marker:       strings.TrimSpace(row[1]),
		})
	}
	return records, nil
}
