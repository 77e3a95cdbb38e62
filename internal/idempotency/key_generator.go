package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey derives a deterministic storage key from the given parts. The
// middleware passes method, path, and the widget's Idempotency-Key header, so
// the same header value cannot replay a response across different routes.
func GenerateKey(parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v\n", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}
