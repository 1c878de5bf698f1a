// Package parser turns raw delimited text from the dashboard's file picker
// into candidate module rows. The dashboards in the field export this data
// from spreadsheets, so parsing is deliberately tolerant: one bad row is
// collected as an error and parsing continues.
package parser

import (
	"errors"
	"strconv"
	"strings"

	"github.com/modabuild/fabline/internal/moduleimport/domain"
)

var (
	// ErrNoHeader means the file is too short to contain a header row.
	ErrNoHeader = errors.New("missing_header_row")
	// ErrNoSerialColumn means no header resolved to serial_number.
	ErrNoSerialColumn = errors.New("missing_serial_number_column")
)

// headerAliases maps each canonical field to the spreadsheet headings the
// field crews actually use. Checked for collisions at init.
var headerAliases = map[string][]string{
	domain.FieldSerialNumber: {"serial number", "serial_number", "serial", "serial no", "serial_no"},
	domain.FieldSequence:     {"build sequence", "build_sequence", "sequence", "build seq", "seq"},
	domain.FieldBLMID:        {"blm id", "blm_id", "blm", "hitch blm id", "hitch_blm_id"},
	"unit_type":              {"unit type", "unit_type"},
	"hitch_unit":             {"hitch unit", "hitch_unit"},
	"rear_unit":              {"rear unit", "rear_unit"},
	"hitch_room":             {"hitch room", "hitch_room"},
	"rear_room":              {"rear room", "rear_room"},
	"hitch_room_type":        {"hitch room type", "hitch_room_type"},
	"rear_room_type":         {"rear room type", "rear_room_type"},
}

var aliasToCanonical map[string]string

func init() {
	aliasToCanonical = make(map[string]string)
	for canonical, aliases := range headerAliases {
		for _, alias := range aliases {
			if existing, ok := aliasToCanonical[alias]; ok && existing != canonical {
				panic("moduleimport: header alias " + alias + " maps to both " + existing + " and " + canonical)
			}
			aliasToCanonical[alias] = canonical
		}
	}
}

// Parse reads the header from the first non-empty line and produces one
// ImportRow per data line. Rows without a serial number are reported in
// Errors with their 1-based source line and skipped.
func Parse(raw string) (*domain.ParseResult, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, ErrNoHeader
	}

	headerLine := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			headerLine = i
			break
		}
	}
	if headerLine < 0 || headerLine == len(lines)-1 {
		return nil, ErrNoHeader
	}

	columns := resolveHeaders(splitLine(lines[headerLine]))
	serialIdx := -1
	for i, column := range columns {
		if column == domain.FieldSerialNumber {
			serialIdx = i
			break
		}
	}
	if serialIdx < 0 {
		return nil, ErrNoSerialColumn
	}

	result := &domain.ParseResult{
		Rows:   make([]domain.ImportRow, 0, len(lines)-headerLine-1),
		Errors: make([]domain.RowError, 0),
	}

	for i := headerLine + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		row, ok := parseRow(columns, splitLine(lines[i]), serialIdx)
		row.Line = i + 1
		if !ok {
			result.Errors = append(result.Errors, domain.RowError{
				Line:  i + 1,
				Error: "Missing serial number",
			})
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func resolveHeaders(cells []string) []string {
	columns := make([]string, len(cells))
	for i, cell := range cells {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		if canonical, ok := aliasToCanonical[normalized]; ok {
			columns[i] = canonical
			continue
		}
		// Unknown headers pass through so unanticipated columns survive
		// a round trip.
		columns[i] = normalized
	}
	return columns
}

func parseRow(columns, cells []string, serialIdx int) (domain.ImportRow, bool) {
	row := domain.ImportRow{Fields: map[string]string{}}

	for i, column := range columns {
		if i >= len(cells) || column == "" {
			continue
		}
		value := strings.TrimSpace(cells[i])
		switch column {
		case domain.FieldSerialNumber:
			row.SerialNumber = value
		case domain.FieldSequence:
			row.HasSequence = true
			if seq, err := strconv.Atoi(value); err == nil && seq >= 0 {
				row.BuildSequence = seq
			}
		default:
			if value != "" {
				row.Fields[column] = value
			}
		}
	}

	if row.SerialNumber == "" {
		return row, false
	}
	return row, true
}

// splitLine splits one CSV line honoring double-quoted cells. A doubled
// quote inside a quoted cell decodes to a literal quote; delimiters inside
// quotes do not separate fields.
func splitLine(line string) []string {
	cells := make([]string, 0, 8)
	var cell strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cell.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteByte(ch)
		}
	}
	cells = append(cells, cell.String())
	return cells
}
