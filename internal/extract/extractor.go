// Package extract turns indexed files into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileBytes is the largest file Extract will read.
const MaxFileBytes = 4 << 20

// sniffLen is how many leading bytes are checked for NUL when detecting binaries.
const sniffLen = 8000

var (
	// ErrBinary is returned for files that look like binaries.
	ErrBinary = errors.New("binary file")
	// ErrTooLarge is returned for files over MaxFileBytes.
	ErrTooLarge = errors.New("file too large")
)

// Extractor extracts plain text from files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Source and other text files are returned as-is (UTF-8 sanitized). PDF, DOCX,
// XLSX, ODT and RTF are converted to text with one line per paragraph, row or page line.
func (e *Extractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxFileBytes {
		return "", fmt.Errorf("%s: %w (%d bytes)", path, ErrTooLarge, info.Size())
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".odt", ".rtf":
		return extractRichText(content)
	default:
		if isBinary(content) {
			return "", ErrBinary
		}
		return extractPlain(content)
	}
}

func isBinary(content []byte) bool {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return bytes.IndexByte(head, 0) >= 0
}
