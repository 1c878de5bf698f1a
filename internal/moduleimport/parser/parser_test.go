package parser

import (
	"errors"
	"testing"

	"github.com/modabuild/fabline/internal/moduleimport/domain"
)

func TestParseResolvesHeaderAliases(t *testing.T) {
	raw := "Serial Number,Build Sequence,Hitch BLM ID,Unit Type\n" +
		"26-0001,1,A-1-01,2BR\n" +
		"26-0002,2,A-1-02,3BR\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no row errors, got %v", result.Errors)
	}

	row := result.Rows[0]
	if row.SerialNumber != "26-0001" {
		t.Fatalf("unexpected serial: %q", row.SerialNumber)
	}
	if !row.HasSequence || row.BuildSequence != 1 {
		t.Fatalf("unexpected sequence: has=%v seq=%d", row.HasSequence, row.BuildSequence)
	}
	if row.Fields[domain.FieldBLMID] != "A-1-01" {
		t.Fatalf("blm id alias not resolved: %v", row.Fields)
	}
	if row.Fields["unit_type"] != "2BR" {
		t.Fatalf("unit type alias not resolved: %v", row.Fields)
	}
}

func TestParseQuotedCells(t *testing.T) {
	raw := "serial_number,build_sequence,unit_type\n" +
		`26-0001,5,"Room ""A"", 5th"` + "\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if got := result.Rows[0].Fields["unit_type"]; got != `Room "A", 5th` {
		t.Fatalf("quoted cell decoded wrong: %q", got)
	}
}

func TestParseReportsMissingSerialWithSourceLine(t *testing.T) {
	raw := "serial_number,build_sequence\n" +
		"26-0001,1\n" +
		",2\n" +
		"26-0003,3\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(result.Rows))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(result.Errors))
	}
	if result.Errors[0].Line != 3 {
		t.Fatalf("expected error on source line 3, got %d", result.Errors[0].Line)
	}
	if result.Errors[0].Error != "Missing serial number" {
		t.Fatalf("unexpected error message: %q", result.Errors[0].Error)
	}
}

func TestParseRowCountMatchesDataLines(t *testing.T) {
	raw := "serial_number,build_sequence\n" +
		"\n" +
		"26-0001,1\n" +
		",\n" +
		"26-0002,\n" +
		"\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	// Every non-empty data line lands in exactly one of Rows or Errors.
	if got := len(result.Rows) + len(result.Errors); got != 3 {
		t.Fatalf("expected 3 accounted lines, got %d", got)
	}
}

func TestParseNonNumericSequenceDefaultsToUnsequenced(t *testing.T) {
	raw := "serial_number,build_sequence\n" +
		"26-0001,TBD\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	row := result.Rows[0]
	if !row.HasSequence {
		t.Fatalf("sequence column was present, HasSequence should be true")
	}
	if row.BuildSequence != 0 {
		t.Fatalf("expected unsequenced default 0, got %d", row.BuildSequence)
	}
}

func TestParseFatalErrors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader for empty input, got %v", err)
	}
	if _, err := Parse("serial_number,build_sequence"); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader for header-only input, got %v", err)
	}
	if _, err := Parse("unit_type,build_sequence\n2BR,1\n"); !errors.Is(err, ErrNoSerialColumn) {
		t.Fatalf("expected ErrNoSerialColumn, got %v", err)
	}
}

func TestParseCRLFInput(t *testing.T) {
	raw := "serial_number,build_sequence\r\n26-0001,1\r\n"

	result, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0].SerialNumber != "26-0001" {
		t.Fatalf("crlf input parsed wrong: %+v", result.Rows)
	}
}
