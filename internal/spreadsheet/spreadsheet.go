// Package spreadsheet reads and writes the xlsx workbooks used for lead
// import and export.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Leads"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	FileName    = "leads.xlsx"
)

// Row is one data row keyed by its lower-cased column header.
type Row map[string]string

// Get returns the trimmed value of the column named key, ignoring case.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[strings.ToLower(key)])
}

// Read parses the first sheet of an xlsx workbook. The first row holds the
// headers; fully empty rows are skipped.
func Read(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(raw) == 0 {
		return []Row{}, nil
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	rows := make([]Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(Row, len(headers))
		empty := true
		for i, v := range cells {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			if strings.TrimSpace(v) != "" {
				empty = false
			}
			row[headers[i]] = v
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Write renders headers and rows into a single-sheet workbook named
// SheetName and writes it to w.
func Write(w io.Writer, headers []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	hdr := make([]any, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
