// Package fileid provides content-addressed identities for indexed chunks.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// idLen is the number of hex characters kept from the chunk id digest.
const idLen = 32

// ContentHash returns the hex sha256 of text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChunkID returns a stable id for a chunk of path spanning [startLine, endLine] whose
// text hashes to contentHash. Unchanged content keeps its id across rebuilds.
func ChunkID(path string, startLine, endLine int, contentHash string) string {
	normalized := filepath.ToSlash(filepath.Clean(path))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d-%d:%s", normalized, startLine, endLine, contentHash)))
	return hex.EncodeToString(sum[:])[:idLen]
}
