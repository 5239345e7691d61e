// Package checksum computes document digests used for change detection
// and optimistic concurrency.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a checksum as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Match reports whether an If-Match header value accepts the document
// with checksum sum. An empty header or "*" matches anything; quoted,
// weak and comma-separated tags are accepted.
func Match(header, sum string) bool {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return true
	}
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == sum {
			return true
		}
	}
	return false
}
