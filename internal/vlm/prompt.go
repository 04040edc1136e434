package vlm

import "strings"

// DescriptionPrompt asks for alt-text style descriptions suitable for
// markdown output.
const DescriptionPrompt = `Describe this picture from a document in two or three sentences.

Rules:
- State what the picture shows: the subject, any visible text or labels, and notable structure (axes, legends, arrows).
- For charts, name the chart type and summarize the trend or comparison shown.
- Do not speculate beyond what is visible.
- Do not start with "This image shows" or similar filler.

Respond with ONLY the description, no other text.`

// ClassificationPrompt constrains the answer to the document-figure label
// set used by the classifier enrichment.
var ClassificationPrompt = `Classify this picture from a document. Answer with exactly one of these labels:

` + strings.Join(ClassLabels, ", ") + `

Respond with ONLY the label, no other text.`

// ClassLabels is the document-figure label set.
var ClassLabels = []string{
	"bar_chart",
	"bar_code",
	"chemistry_markush_structure",
	"chemistry_molecular_structure",
	"flow_chart",
	"icon",
	"line_chart",
	"logo",
	"map",
	"other",
	"pie_chart",
	"qr_code",
	"remote_sensing",
	"screenshot",
	"signature",
	"stamp",
}
