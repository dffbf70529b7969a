package lineseek

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

// ParquetCompression specifies internal Parquet compression.
type ParquetCompression int

// Parquet compression options for internal file compression.
const (
	ParquetCompressionNone ParquetCompression = iota
	ParquetCompressionSnappy
	ParquetCompressionGzip
)

// ParquetOption configures Parquet codec behavior.
type ParquetOption func(*parquetCodec)

// WithParquetCompression sets internal Parquet compression.
func WithParquetCompression(codec ParquetCompression) ParquetOption {
	return func(c *parquetCodec) {
		c.compression = codec
	}
}

// parquetCodec writes sampled tables as Apache Parquet.
type parquetCodec struct {
	compression ParquetCompression
}

// NewParquetCodec creates a Parquet table codec.
//
// Every column is an optional string, since CSV fields carry no types.
// Skipped rows become all-null rows. The schema is derived per table from its
// columns; duplicate column names fail with ErrSchemaMismatch.
func NewParquetCodec(opts ...ParquetOption) TableCodec {
	c := &parquetCodec{compression: ParquetCompressionSnappy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *parquetCodec) Name() string {
	return "parquet"
}

func (c *parquetCodec) Encode(w io.Writer, t *Table) error {
	names := columnNames(t)
	schema, order, err := buildStringSchema(names)
	if err != nil {
		return err
	}

	// position of each table column within the schema's sorted field order
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	rowBuf := parquet.NewBuffer(schema)
	for i, values := range t.Rows {
		if len(values) > len(names) {
			return fmt.Errorf("parquet: row %d has %d fields for %d columns: %w", i, len(values), len(names), ErrSchemaMismatch)
		}
		row := make(parquet.Row, len(order))
		for col := range order {
			row[col] = parquet.NullValue().Level(0, 0, col)
		}
		for j, v := range values {
			col := pos[names[j]]
			row[col] = parquet.ByteArrayValue([]byte(v)).Level(0, 1, col)
		}
		if _, err := rowBuf.WriteRows([]parquet.Row{row}); err != nil {
			return fmt.Errorf("parquet: write row %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	pqWriter := parquet.NewWriter(&buf, schema, c.compressionOption())
	if _, err := pqWriter.WriteRowGroup(rowBuf); err != nil {
		_ = pqWriter.Close()
		return fmt.Errorf("parquet: write row group: %w", err)
	}
	if err := pqWriter.Close(); err != nil {
		return fmt.Errorf("parquet: close writer: %w", err)
	}

	_, err = io.Copy(w, &buf)
	return err
}

func (c *parquetCodec) compressionOption() parquet.WriterOption {
	switch c.compression {
	case ParquetCompressionSnappy:
		return parquet.Compression(&parquet.Snappy)
	case ParquetCompressionGzip:
		return parquet.Compression(&parquet.Gzip)
	default:
		return parquet.Compression(&parquet.Uncompressed)
	}
}

// buildStringSchema returns a schema of optional string columns and the
// column names in schema order.
func buildStringSchema(names []string) (*parquet.Schema, []string, error) {
	group := make(parquet.Group, len(names))
	for _, name := range names {
		if name == "" {
			return nil, nil, fmt.Errorf("parquet: empty column name: %w", ErrSchemaMismatch)
		}
		if _, dup := group[name]; dup {
			return nil, nil, fmt.Errorf("parquet: duplicate column %q: %w", name, ErrSchemaMismatch)
		}
		group[name] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("row", group)
	order := make([]string, 0, len(names))
	for _, f := range schema.Fields() {
		order = append(order, f.Name())
	}
	return schema, order, nil
}

// ReadParquetTable decodes a file written by the Parquet codec.
// All-null rows come back as nil rows. Columns are in schema order.
func ReadParquetTable(data []byte) (*Table, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parquet: open file: %w", err)
	}

	table := &Table{}
	for _, f := range file.Schema().Fields() {
		table.Columns = append(table.Columns, f.Name())
	}

	reader := parquet.NewReader(file)
	defer func() { _ = reader.Close() }()

	rows := make([]parquet.Row, 100)
	for {
		n, err := reader.ReadRows(rows)
		for i := 0; i < n; i++ {
			table.Rows = append(table.Rows, rowValues(rows[i], len(table.Columns)))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parquet: read rows: %w", err)
		}
	}
	return table, nil
}

func rowValues(row parquet.Row, width int) []string {
	values := make([]string, width)
	present := false
	for i := 0; i < width && i < len(row); i++ {
		if row[i].IsNull() {
			continue
		}
		values[i] = string(row[i].ByteArray())
		present = true
	}
	if !present {
		return nil
	}
	return values
}

var _ TableCodec = (*parquetCodec)(nil)
