package export

import (
	"strings"

	"github.com/rthomann/docmill/internal/docmodel"
)

// Text renders the document as plain text: headings on their own lines,
// table rows tab-joined, images reduced to their best textual stand-in.
func Text(doc *docmodel.Document) string {
	var sb strings.Builder
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s)
	}

	for _, b := range doc.Blocks {
		switch b.Kind {
		case docmodel.KindTable:
			if b.Table == nil {
				continue
			}
			var rows []string
			if len(b.Table.Headers) > 0 {
				rows = append(rows, strings.Join(b.Table.Headers, "\t"))
			}
			for _, row := range b.Table.Rows {
				rows = append(rows, strings.Join(row, "\t"))
			}
			emit(strings.Join(rows, "\n"))
		case docmodel.KindList:
			emit(strings.Join(b.Items, "\n"))
		case docmodel.KindImage:
			if b.Image == nil {
				continue
			}
			switch {
			case b.Image.OCRText != "":
				emit(b.Image.OCRText)
			case b.Image.Description != "":
				emit(b.Image.Description)
			case b.Image.AltText != "":
				emit(b.Image.AltText)
			}
		case docmodel.KindPageBreak:
			continue
		default:
			emit(b.Text)
		}
	}
	out := sb.String()
	if out != "" {
		out += "\n"
	}
	return out
}
