// Package tableio reads and writes quantile tables as delimited text. The
// first line is a header whose first cell names the row identifier column and
// whose remaining cells are column identifiers. Every following line holds a
// row identifier and one value per column.
package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/qnorm/internal/quantile"
)

const (
	DefaultDelimiter = '\t'
	DefaultIndexName = "id"
	// Stdio selects stdin for reads and stdout for writes.
	Stdio = "-"
)

var missingTokens = map[string]struct{}{
	"":     {},
	"na":   {},
	"nan":  {},
	"null": {},
}

type ReadOptions struct {
	Delimiter rune
}

type WriteOptions struct {
	Delimiter rune
	// IndexName is written in the header above the row identifiers.
	IndexName string
	// Precision is the number of decimals. Zero or less writes the shortest
	// representation that round-trips.
	Precision int
}

func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Delimiter: DefaultDelimiter,
		IndexName: DefaultIndexName,
	}
}

func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Read parses a table. Missing cells (empty, NA, NaN, null) become
// quantile.Missing.
func Read(r io.Reader, opts ReadOptions) (*quantile.Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = -1
	// TSV has no quoting convention; a stray quote is part of the field.
	cr.LazyQuotes = opts.Delimiter != ','

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header has %d field(s), need a row identifier column and at least one sample column", len(header))
	}

	colIDs := header[1:]
	columns := make([][]float64, len(colIDs))
	var rowIDs []string

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(header) {
			return nil, fmt.Errorf("line %d has %d fields, expected %d", line, len(record), len(header))
		}

		rowIDs = append(rowIDs, record[0])
		for j, cell := range record[1:] {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, colIDs[j], err)
			}
			columns[j] = append(columns[j], v)
		}
	}

	log.Debug().Int("rows", len(rowIDs)).Int("cols", len(colIDs)).Msg("Read table")
	return quantile.NewTable(rowIDs, colIDs, columns)
}

func parseCell(cell string) (float64, error) {
	if IsMissingToken(cell) {
		return quantile.Missing, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", cell)
	}
	return v, nil
}

// Write renders t. Missing cells are written as NA.
func Write(w io.Writer, t *quantile.Table, opts WriteOptions) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultDelimiter
	}
	if opts.IndexName == "" {
		opts.IndexName = DefaultIndexName
	}

	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter

	colIDs := t.ColIDs()
	if err := cw.Write(append([]string{opts.IndexName}, colIDs...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(colIDs)+1)
	for i, id := range t.RowIDs() {
		record[0] = id
		for j, v := range t.Row(i) {
			record[j+1] = formatCell(v, opts.Precision)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %q: %w", id, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCell(v float64, precision int) string {
	if quantile.IsMissing(v) {
		return "NA"
	}
	if precision <= 0 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// ReadFile reads a table from path, or from stdin when path is Stdio.
func ReadFile(path string, opts ReadOptions) (*quantile.Table, error) {
	if path == Stdio {
		return Read(os.Stdin, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteFile writes t to path, or to stdout when path is Stdio.
func WriteFile(path string, t *quantile.Table, opts WriteOptions) error {
	if path == Stdio {
		return Write(os.Stdout, t, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t, opts); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// ParseDelimiter accepts a single character or one of the escapes \t, tab,
// comma.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab", "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	return runes[0], nil
}
