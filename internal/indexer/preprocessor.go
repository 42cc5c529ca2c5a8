package indexer

import "strings"

// SplitLines splits text into lines on any line-ending convention (\r\n, \r, \n).
// A trailing terminator does not produce an extra empty line. Empty text has no lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
