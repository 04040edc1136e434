package export

import (
	"encoding/json"
	"fmt"

	"github.com/rthomann/docmill/internal/docmodel"
)

// JSON serializes the document model itself. Image bytes come out as
// base64 per encoding/json.
func JSON(doc *docmodel.Document) (string, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(out) + "\n", nil
}
