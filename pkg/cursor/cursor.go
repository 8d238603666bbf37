// Package cursor implements opaque keyset-pagination tokens over the
// (created_at_epoch, id) total order of stored records.
package cursor

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned when a token was not produced by Encode.
var ErrInvalidCursor = errors.New("invalid cursor")

const separator = ":"

// Encode packs a (epoch, id) position into an opaque token.
func Encode(epoch, id int64) string {
	raw := fmt.Sprintf("%d%s%d", epoch, separator, id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode unpacks a token produced by Encode. Malformed tokens return
// ErrInvalidCursor, never a panic.
func Decode(token string) (epoch, id int64, err error) {
	if token == "" {
		return 0, 0, ErrInvalidCursor
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, 0, ErrInvalidCursor
	}

	parts := strings.SplitN(string(raw), separator, 2)
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCursor
	}

	epoch, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, ErrInvalidCursor
	}
	id, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, ErrInvalidCursor
	}

	if epoch <= 0 || id <= 0 {
		return 0, 0, ErrInvalidCursor
	}

	return epoch, id, nil
}

// ClampPageSize bounds a requested page size to [1, 200], substituting
// def when the request is unset or non-positive.
func ClampPageSize(requested, def int) int {
	if requested <= 0 {
		return def
	}
	if requested > 200 {
		return 200
	}
	return requested
}
