package asyncdata

import (
	"fmt"

	"github.com/unkn0wn-root/asyncdata/codec"
)

// pick keeps only the listed top-level fields of v. Fields missing from v
// are left out rather than set to nil.
func pick[T any](v T, keys []string) (any, error) {
	m, err := codec.Convert[map[string]any](v)
	if err != nil {
		return nil, fmt.Errorf("asyncdata: pick: %w", err)
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if x, ok := m[k]; ok {
			out[k] = x
		}
	}
	t, err := codec.Convert[T](out)
	if err != nil {
		return nil, fmt.Errorf("asyncdata: pick: %w", err)
	}
	return t, nil
}
