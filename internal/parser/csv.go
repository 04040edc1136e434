package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rthomann/docmill/internal/docmodel"
)

// CSVParser handles CSV files. The whole sheet becomes one table block with
// the first row as headers.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(filename, ".csv"),
			SourceFormat: "csv",
			SourceName:   filename,
		},
	}

	if len(records) > 0 {
		tbl := &docmodel.Table{Headers: records[0], Rows: [][]string{}}
		if len(records) > 1 {
			tbl.Rows = records[1:]
		}
		doc.Append(&docmodel.Block{Kind: docmodel.KindTable, Table: tbl})
	}

	doc.Finalize()
	return doc, nil
}
