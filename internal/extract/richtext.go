package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractRichText converts RTF and ODT documents to plain text.
func extractRichText(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract rich text: %w", err)
	}
	return extractPlain([]byte(text))
}
