// Package sheet pulls selected columns out of an Excel workbook.
package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// ErrLegacyFormat is returned for binary .xls (BIFF) workbooks, which only
// the Office Open XML reader's predecessors understand. Re-save as .xlsx.
var ErrLegacyFormat = errors.New("legacy .xls workbook; save it as .xlsx")

// ErrNoSheet is returned when the requested sheet does not exist.
var ErrNoSheet = errors.New("sheet not found")

// ole2Magic prefixes compound documents, the container of BIFF workbooks.
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Options selects what ExtractColumns reads.
type Options struct {
	// Sheet name; empty means the first sheet.
	Sheet string
	// Columns are column letters, default A and B.
	Columns []string
	// HeaderRows are skipped at the top. Negative means none; zero means one.
	HeaderRows int
}

func (o Options) headerRows() int {
	switch {
	case o.HeaderRows < 0:
		return 0
	case o.HeaderRows == 0:
		return 1
	}
	return o.HeaderRows
}

func (o Options) columns() []string {
	if len(o.Columns) == 0 {
		return []string{"A", "B"}
	}
	return o.Columns
}

// ExtractColumns returns the selected columns of every data row. Empty cells
// are nil. Rows whose first selected column is empty are dropped.
func ExtractColumns(r io.Reader, opts Options) ([][]*string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, ole2Magic) {
		return nil, ErrLegacyFormat
	}
	idx := make([]int, 0, len(opts.columns()))
	for _, c := range opts.columns() {
		n, err := excelize.ColumnNameToNumber(strings.ToUpper(strings.TrimSpace(c)))
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		idx = append(idx, n-1)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	name := opts.Sheet
	if name == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ErrNoSheet
		}
		name = list[0]
	} else if n, _ := f.GetSheetIndex(name); n < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, name)
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}

	skip := opts.headerRows()
	out := make([][]*string, 0, len(rows))
	dropped := 0
	for i, row := range rows {
		if i < skip {
			continue
		}
		vals := make([]*string, len(idx))
		for j, col := range idx {
			if col < len(row) && row[col] != "" {
				v := row[col]
				vals[j] = &v
			}
		}
		if vals[0] == nil {
			dropped++
			continue
		}
		out = append(out, vals)
	}
	log.Debug().Str("sheet", name).Int("rows", len(out)).Int("dropped", dropped).Msg("read columns")
	return out, nil
}

// WriteJSON writes rows as an indented JSON array of arrays.
func WriteJSON(w io.Writer, rows [][]*string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if rows == nil {
		rows = [][]*string{}
	}
	return enc.Encode(rows)
}

// ExtractFile reads inPath and writes the selected columns to outPath.
func ExtractFile(inPath, outPath string, opts Options) (int, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	rows, err := ExtractColumns(in, opts)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", inPath, err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return 0, err
	}
	if err := WriteJSON(out, rows); err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	log.Info().Str("in", inPath).Str("out", outPath).Int("rows", len(rows)).Msg("extracted columns")
	return len(rows), nil
}
