package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/rthomann/docmill/internal/docmodel"
)

// TextParser handles plain text files. Blank lines delimit paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*docmodel.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &docmodel.Document{
		Meta: docmodel.Metadata{
			Title:        strings.TrimSuffix(filename, ".txt"),
			SourceFormat: "text",
			SourceName:   filename,
		},
	}

	var current strings.Builder
	flush := func() {
		doc.AppendText(current.String(), 0)
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	doc.Finalize()
	return doc, nil
}
