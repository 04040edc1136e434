package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rthomann/docmill/internal/docmodel"
)

// XLSXParser handles .xlsx workbooks. Every sheet becomes a table block with
// the first row as headers; sheet names become headings when the workbook
// has more than one sheet.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(filename, ".xlsx"),
			SourceFormat: "xlsx",
			SourceName:   filename,
		},
	}

	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		if len(sheets) > 1 {
			doc.Append(&docmodel.Block{Kind: docmodel.KindHeading, Level: 2, Text: sheet})
		}
		tbl := &docmodel.Table{Headers: rows[0], Rows: [][]string{}}
		if len(rows) > 1 {
			tbl.Rows = padRows(rows[1:], len(rows[0]))
		}
		doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: tbl})
	}

	doc.Finalize()
	return doc, nil
}

// padRows rights out the grid: excelize trims trailing empty cells per row.
func padRows(rows [][]string, width int) [][]string {
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		rows[i] = row
	}
	return rows
}
