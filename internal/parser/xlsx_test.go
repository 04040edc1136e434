package parser

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/rthomann/docmill/internal/docmodel"
)

func buildXlsx(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestXLSXParser_SingleSheetTable(t *testing.T) {
	data := buildXlsx(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "name")
		f.SetCellValue("Sheet1", "B1", "amount")
		f.SetCellValue("Sheet1", "A2", "widgets")
		f.SetCellValue("Sheet1", "B2", 42)
	})

	doc, err := (&XLSXParser{}).Parse(bytes.NewReader(data), "inventory.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Blocks) != 1 || doc.Blocks[0].Kind != docmodel.KindTable {
		t.Fatalf("expected one table block, got %+v", doc.Blocks)
	}

	tbl := doc.Blocks[0].Table
	if len(tbl.Headers) != 2 || tbl.Headers[0] != "name" {
		t.Errorf("unexpected headers: %v", tbl.Headers)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][0] != "widgets" || tbl.Rows[0][1] != "42" {
		t.Errorf("unexpected rows: %v", tbl.Rows)
	}
	if doc.Meta.SourceFormat != "xlsx" {
		t.Errorf("unexpected source format: %q", doc.Meta.SourceFormat)
	}
}

func TestXLSXParser_MultiSheetGetsHeadings(t *testing.T) {
	data := buildXlsx(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "id")
		f.SetCellValue("Sheet1", "A2", "1")
		f.NewSheet("Costs")
		f.SetCellValue("Costs", "A1", "total")
		f.SetCellValue("Costs", "A2", "99")
	})

	doc, err := (&XLSXParser{}).Parse(bytes.NewReader(data), "report.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var headings []string
	var tables int
	for _, b := range doc.Blocks {
		switch b.Kind {
		case docmodel.KindHeading:
			headings = append(headings, b.Text)
		case docmodel.KindTable:
			tables++
		}
	}
	if tables != 2 {
		t.Errorf("expected a table per sheet, got %d", tables)
	}
	if len(headings) != 2 || headings[1] != "Costs" {
		t.Errorf("expected sheet-name headings, got %v", headings)
	}
}

func TestXLSXParser_PadsShortRows(t *testing.T) {
	data := buildXlsx(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "a")
		f.SetCellValue("Sheet1", "B1", "b")
		f.SetCellValue("Sheet1", "C1", "c")
		f.SetCellValue("Sheet1", "A2", "only")
	})

	doc, err := (&XLSXParser{}).Parse(bytes.NewReader(data), "ragged.xlsx")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	row := doc.Blocks[0].Table.Rows[0]
	if len(row) != 3 {
		t.Errorf("expected padded row of width 3, got %v", row)
	}
}
