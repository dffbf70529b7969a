package lineseek

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// -----------------------------------------------------------------------------
// CSV Configuration
// -----------------------------------------------------------------------------

type csvConfig struct {
	header    bool
	ignoreBad bool
	delimiter rune
}

// CSVOption configures CSVSampler construction.
type CSVOption interface {
	applyCSV(*csvConfig) error
}

type csvOptionFunc func(*csvConfig) error

func (f csvOptionFunc) applyCSV(cfg *csvConfig) error {
	return f(cfg)
}

// WithHeader sets whether line 0 is a header row. Default: true.
func WithHeader(header bool) CSVOption {
	return csvOptionFunc(func(cfg *csvConfig) error {
		cfg.header = header
		return nil
	})
}

// WithIgnoreBadLines makes rows whose field count differs from the header
// come back as nil instead of failing with ErrSchemaMismatch. Default: false.
func WithIgnoreBadLines(ignore bool) CSVOption {
	return csvOptionFunc(func(cfg *csvConfig) error {
		cfg.ignoreBad = ignore
		return nil
	})
}

// WithDelimiter sets the field delimiter. Default: ','.
// The quote character and line breaks are rejected.
func WithDelimiter(r rune) CSVOption {
	return csvOptionFunc(func(cfg *csvConfig) error {
		if r == '"' || r == '\r' || r == '\n' {
			return fmt.Errorf("WithDelimiter: delimiter %q: %w", r, ErrInvalidOption)
		}
		cfg.delimiter = r
		return nil
	})
}

// -----------------------------------------------------------------------------
// Records and tables
// -----------------------------------------------------------------------------

// Record is one parsed row labeled by the header columns.
// Columns is nil when the file has no header.
type Record struct {
	Columns []string
	Values  []string
}

// Get returns the value of the named column.
func (r *Record) Get(column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return "", false
}

// Table is a batch of parsed rows sharing the header columns.
// A nil row marks a line skipped by WithIgnoreBadLines.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Records returns the rows as records; skipped rows are nil.
func (t *Table) Records() []*Record {
	records := make([]*Record, len(t.Rows))
	for i, row := range t.Rows {
		if row == nil {
			continue
		}
		records[i] = &Record{Columns: t.Columns, Values: row}
	}
	return records
}

// -----------------------------------------------------------------------------
// CSV Sampler
// -----------------------------------------------------------------------------

// CSVSampler parses lines retrieved by a Sampler as CSV rows.
//
// Rows are numbered from 0 after the header, so row n is line n+1 when a
// header is present. Each line must hold exactly one record; quoted fields
// spanning lines are not supported.
type CSVSampler struct {
	lines  *Sampler
	cfg    csvConfig
	header []string
}

// NewCSV creates a CSVSampler reading rows through lines.
// With a header (the default), line 0 is parsed as the column labels.
// Rows end with the terminator the Sampler was built with.
func NewCSV(ctx context.Context, lines *Sampler, opts ...CSVOption) (*CSVSampler, error) {
	if lines == nil {
		return nil, errors.New("lineseek: sampler is required")
	}
	cfg := csvConfig{
		header:    true,
		delimiter: ',',
	}
	for _, opt := range opts {
		if err := opt.applyCSV(&cfg); err != nil {
			return nil, fmt.Errorf("lineseek: %w", err)
		}
	}

	c := &CSVSampler{lines: lines, cfg: cfg}
	if cfg.header {
		line, err := lines.Line(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("lineseek: reading header: %w", err)
		}
		header, err := c.parse(line)
		if err != nil {
			return nil, fmt.Errorf("lineseek: parsing header: %w", err)
		}
		c.header = header
	}
	return c, nil
}

// Header returns the column labels, or nil when there are none.
func (c *CSVSampler) Header() []string {
	if c.header == nil {
		return nil
	}
	return append([]string(nil), c.header...)
}

// HasHeader reports whether line 0 was read as the header.
func (c *CSVSampler) HasHeader() bool {
	return c.cfg.header
}

// SetHeader replaces the column labels used for labeling and field-count
// checks. It does not change row numbering.
func (c *CSVSampler) SetHeader(columns []string) {
	c.header = append([]string(nil), columns...)
}

// RowCount returns the number of data rows.
func (c *CSVSampler) RowCount() int {
	n := c.lines.LineCount()
	if c.cfg.header && n > 0 {
		n--
	}
	return n
}

// Row returns data row n as a record.
// A bad row returns ErrSchemaMismatch, or (nil, nil) with WithIgnoreBadLines.
func (c *CSVSampler) Row(ctx context.Context, n int) (*Record, error) {
	if n < 0 || n >= c.RowCount() {
		return nil, fmt.Errorf("lineseek: row %d of %d: %w", n, c.RowCount(), ErrOutOfRange)
	}
	values, err := c.row(ctx, n)
	if err != nil || values == nil {
		return nil, err
	}
	return &Record{Columns: c.Header(), Values: values}, nil
}

// Rows returns the requested data rows in input order.
// Returns ErrTooManyRequested when more rows are requested than exist.
func (c *CSVSampler) Rows(ctx context.Context, ns []int) (*Table, error) {
	if len(ns) > c.RowCount() {
		return nil, fmt.Errorf("lineseek: %d rows requested from %d: %w", len(ns), c.RowCount(), ErrTooManyRequested)
	}
	table := &Table{Columns: c.Header(), Rows: make([][]string, 0, len(ns))}
	for _, n := range ns {
		if n < 0 || n >= c.RowCount() {
			return nil, fmt.Errorf("lineseek: row %d of %d: %w", n, c.RowCount(), ErrOutOfRange)
		}
		values, err := c.row(ctx, n)
		if err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, values)
	}
	return table, nil
}

// RandomRows returns k data rows drawn uniformly with replacement.
func (c *CSVSampler) RandomRows(ctx context.Context, k int) (*Table, error) {
	ns, err := c.lines.drawBelow(k, c.RowCount())
	if err != nil {
		return nil, err
	}
	return c.Rows(ctx, ns)
}

func (c *CSVSampler) row(ctx context.Context, n int) ([]string, error) {
	if c.cfg.header {
		n++
	}
	line, err := c.lines.Line(ctx, n)
	if err != nil {
		return nil, err
	}
	values, err := c.parse(line)
	if err != nil {
		return nil, fmt.Errorf("lineseek: parsing line %d: %w", n, err)
	}
	if c.header != nil && len(values) != len(c.header) {
		if c.cfg.ignoreBad {
			return nil, nil
		}
		return nil, fmt.Errorf("lineseek: line %d has %d fields, header has %d: %w",
			n, len(values), len(c.header), ErrSchemaMismatch)
	}
	return values, nil
}

// parse splits one line into fields. A blank line has no fields.
func (c *CSVSampler) parse(line string) ([]string, error) {
	line = strings.TrimSuffix(line, string(c.lines.resolver.term))
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = c.cfg.delimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	values, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}
