package lineseek

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// TableCodec serializes a sampled Table.
//
// Codecs are orthogonal to sources and sampling modes.
type TableCodec interface {
	// Name returns the codec identifier (for example, "jsonl" or "parquet").
	Name() string

	// Encode writes the table to w.
	Encode(w io.Writer, t *Table) error
}

// columnNames returns the table's labels, or positional names when the
// table has no header.
func columnNames(t *Table) []string {
	if t.Columns != nil {
		return t.Columns
	}
	width := 0
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("col_%d", i)
	}
	return names
}

// -----------------------------------------------------------------------------
// JSONL Codec
// -----------------------------------------------------------------------------

type jsonlCodec struct{}

// NewJSONLCodec creates a JSONL (JSON Lines) table codec.
//
// Each row is one JSON object keyed by column name. Skipped rows are written
// as null so output lines stay aligned with the requested rows.
func NewJSONLCodec() TableCodec {
	return &jsonlCodec{}
}

func (j *jsonlCodec) Name() string {
	return "jsonl"
}

func (j *jsonlCodec) Encode(w io.Writer, t *Table) error {
	names := columnNames(t)
	enc := jsonCodec.NewEncoder(w)
	for i, row := range t.Rows {
		if row == nil {
			if err := enc.Encode(nil); err != nil {
				return err
			}
			continue
		}
		obj := make(map[string]string, len(row))
		for c, v := range row {
			if c >= len(names) {
				return fmt.Errorf("jsonl: row %d has %d fields for %d columns: %w", i, len(row), len(names), ErrSchemaMismatch)
			}
			obj[names[c]] = v
		}
		if err := enc.Encode(obj); err != nil {
			return err
		}
	}
	return nil
}

// DecodeJSONLine decodes one sampled JSON Lines record.
// The terminator, if any, is ignored.
func DecodeJSONLine(line string) (map[string]any, error) {
	var record map[string]any
	if err := jsonCodec.UnmarshalFromString(strings.TrimRight(line, "\r\n"), &record); err != nil {
		return nil, err
	}
	return record, nil
}

// -----------------------------------------------------------------------------
// CSV Codec
// -----------------------------------------------------------------------------

type csvCodec struct {
	delimiter rune
}

// NewCSVCodec creates a CSV table codec that quotes every field.
// The header line is written first when the table has columns.
func NewCSVCodec(delimiter rune) TableCodec {
	return &csvCodec{delimiter: delimiter}
}

func (c *csvCodec) Name() string {
	return "csv"
}

func (c *csvCodec) Encode(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	if t.Columns != nil {
		c.writeRow(bw, t.Columns)
	}
	for _, row := range t.Rows {
		if row == nil {
			continue
		}
		c.writeRow(bw, row)
	}
	return bw.Flush()
}

func (c *csvCodec) writeRow(bw *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			_, _ = bw.WriteRune(c.delimiter)
		}
		_ = bw.WriteByte('"')
		_, _ = bw.WriteString(strings.ReplaceAll(f, `"`, `""`))
		_ = bw.WriteByte('"')
	}
	_ = bw.WriteByte('\n')
}

var (
	_ TableCodec = (*jsonlCodec)(nil)
	_ TableCodec = (*csvCodec)(nil)
)
