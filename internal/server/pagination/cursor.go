package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const cursorSeparator = ","

// EncodeCursor creates an opaque cursor string from a sort key and an ID.
// The key is the value of the primary sort column of the last row returned.
func EncodeCursor(key string, id int64) string {
	raw := fmt.Sprintf("%s%s%d", key, cursorSeparator, id)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses the opaque cursor string back into sort key and ID.
func DecodeCursor(encodedCursor string) (string, int64, error) {
	decodedBytes, err := base64.URLEncoding.DecodeString(encodedCursor)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	raw := string(decodedBytes)
	sep := strings.LastIndex(raw, cursorSeparator)
	if sep < 0 {
		return "", 0, fmt.Errorf("invalid cursor format")
	}

	id, err := strconv.ParseInt(raw[sep+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid id in cursor: %q", raw[sep+1:])
	}

	return raw[:sep], id, nil
}
