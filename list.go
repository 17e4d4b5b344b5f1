package kwpdf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadList reads record identifiers from CSV input. The identifier is the
// first column; other columns are ignored. Blank lines, lines starting
// with '#', and a leading header row are skipped. Identifiers are returned
// as written; they are validated when processed.
func ReadList(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	var ids []string
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kwpdf: reading list: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		id := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if id == "" {
			continue
		}
		if first {
			first = false
			if isHeader(id) {
				continue
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// isHeader reports whether the first identifier cell looks like a column title
// rather than an identifier.
func isHeader(cell string) bool {
	if _, err := ParseRecordID(cell); err == nil {
		return false
	}
	return !strings.Contains(cell, "/")
}
