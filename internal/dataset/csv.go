package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"flowlens/internal/model"
)

// RawTable is a delimited file as read, before type coercion
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string
}

// ReadCSV reads a header row followed by data rows. Rows with a different
// field count than the header are rejected by the csv reader.
func ReadCSV(r io.Reader, source string) (*RawTable, error) {
	reader := csv.NewReader(bufio.NewReader(r))

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", source)
		}
		return nil, fmt.Errorf("%s: failed to read header: %w", source, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// strip a UTF-8 byte order mark left by spreadsheet exports
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	raw := &RawTable{Source: source, Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		raw.Rows = append(raw.Rows, row)
	}
	return raw, nil
}

// WriteCSV writes the table's schema columns in canonical order, followed by
// the label columns when the table has been labeled.
func WriteCSV(w io.Writer, table *model.Table) error {
	columns := make([]string, 0, len(model.Columns)+len(model.LabelColumns))
	for _, c := range model.Columns {
		if table.HasColumn(c) {
			columns = append(columns, c)
		}
	}
	if table.Labeled {
		columns = append(columns, model.LabelColumns...)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}

	row := make([]string, len(columns))
	for i := range table.Records {
		rec := &table.Records[i]
		for j, c := range columns {
			row[j] = fields[c].get(rec)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile writes the table to path, creating parent directories as needed
func WriteFile(path string, table *model.Table) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := WriteCSV(w, table); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
