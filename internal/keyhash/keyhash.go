// Package keyhash derives stable cache keys from structured inputs.
package keyhash

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/asyncdata/codec"
)

var det = codec.MustCBOR[[]any](true)

// Hash returns a short deterministic digest of parts. Map keys are sorted by
// the canonical CBOR encoding, so two maps with the same content hash the
// same regardless of insertion order.
func Hash(parts ...any) (string, error) {
	b, err := det.Encode(parts)
	if err != nil {
		return "", fmt.Errorf("keyhash: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(b), 36), nil
}
