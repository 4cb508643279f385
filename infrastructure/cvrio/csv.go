// Package cvrio reads and writes wide CVR tables. It handles the
// serialization concerns the engine deliberately ignores: CSV dialect
// and line-terminator detection, UTF-8 byte order marks, and conversion
// of long-format Parquet exports into the wide table shape.
package cvrio

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"

	"github.com/electaudit/cvranon/internal/domain"
	"github.com/electaudit/cvranon/internal/ports"
)

var (
	_ ports.TableReader = (*Reader)(nil)
	_ ports.TableWriter = (*Writer)(nil)
)

// Reader loads CVR tables from CSV or Parquet files, dispatching on the
// file extension.
type Reader struct {
	// HeaderColumns is the count of identifying prefix columns.
	HeaderColumns int

	// StyleColumn is the index of the precinct/style label column.
	StyleColumn int
}

// NewReader creates a Reader for the given column layout.
func NewReader(headerColumns, styleColumn int) *Reader {
	return &Reader{HeaderColumns: headerColumns, StyleColumn: styleColumn}
}

// Read implements ports.TableReader.
func (r *Reader) Read(ctx context.Context, path string) (*domain.Table, error) {
	if IsParquetFile(path) {
		return r.readParquet(ctx, path)
	}
	return r.readCSV(path)
}

func (r *Reader) readCSV(path string) (*domain.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cvr file: %w", err)
	}

	terminator := detectLineTerminator(raw)

	// Dominion exports frequently carry a UTF-8 BOM; strip it before the
	// CSV reader sees the first field.
	decoded := unicode.UTF8BOM.NewDecoder().Reader(bytes.NewReader(raw))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header := make([][]string, 0, 4)
	for i := 0; i < 4; i++ {
		rec, err := cr.Read()
		if err != nil {
			return nil, fmt.Errorf("%w: missing header row %d: %v", domain.ErrInvalidTable, i+1, err)
		}
		header = append(header, rec)
	}

	var rows []domain.BallotRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read cvr row: %w", err)
		}
		rows = append(rows, domain.BallotRow(rec))
	}

	t, err := domain.NewTable(header[0], header[1], header[2], header[3], rows, r.HeaderColumns, r.StyleColumn)
	if err != nil {
		return nil, err
	}
	t.LineTerminator = terminator
	return t, nil
}

// detectLineTerminator sniffs the terminator from the first KiB of the
// file: CRLF wins over LF over CR; lone CR is normalized to LF because
// encoding/csv cannot emit it.
func detectLineTerminator(raw []byte) string {
	chunk := raw
	if len(chunk) > 1024 {
		chunk = chunk[:1024]
	}
	switch {
	case bytes.Contains(chunk, []byte("\r\n")):
		return "\r\n"
	case bytes.Contains(chunk, []byte("\n")):
		return "\n"
	case bytes.Contains(chunk, []byte("\r")):
		return "\n"
	default:
		return "\n"
	}
}

// Writer persists CVR tables as CSV using the table's line terminator.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer { return &Writer{} }

// Write implements ports.TableWriter.
func (w *Writer) Write(ctx context.Context, path string, t *domain.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	if err := writeTable(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTable(f io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(f)
	cw.UseCRLF = t.LineTerminator == "\r\n"

	for _, header := range [][]string{t.VersionRow, t.ContestRow, t.ChoiceRow, t.HeaderRow} {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header row: %w", err)
		}
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write ballot row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
