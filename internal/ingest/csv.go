// Package ingest loads fault log exports into a running Liftwatch server.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row is one fault log entry read from an export.
type Row struct {
	Line      int
	AssetCode string
	ID        string
	Data      map[string]any
}

// ErrNoCodeColumn is returned when the header names no asset code column.
var ErrNoCodeColumn = errors.New("header has no asset_code column")

var codeColumns = []string{"asset_code", "code", "asset"}

// ReadCSV reads a fault log export. The header must name an asset code
// column; an optional id column becomes the record id and every other
// column is passed through as record data. Rows without an asset code are
// skipped and counted. limit <= 0 reads everything.
func ReadCSV(r io.Reader, limit int) ([]Row, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	codeCol := -1
	for _, name := range codeColumns {
		if i, ok := colIndex[name]; ok {
			codeCol = i
			break
		}
	}
	if codeCol < 0 {
		return nil, 0, ErrNoCodeColumn
	}
	idCol, hasID := colIndex["id"]

	var rows []Row
	skipped := 0
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped++
			continue
		}
		if codeCol >= len(record) || strings.TrimSpace(record[codeCol]) == "" {
			skipped++
			continue
		}

		row := Row{
			Line:      line,
			AssetCode: strings.TrimSpace(record[codeCol]),
			Data:      make(map[string]any, len(record)),
		}
		for name, i := range colIndex {
			if i == codeCol || i >= len(record) {
				continue
			}
			if hasID && i == idCol {
				row.ID = strings.TrimSpace(record[i])
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				row.Data[name] = v
			}
		}

		rows = append(rows, row)
		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	return rows, skipped, nil
}
