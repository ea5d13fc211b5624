package pagination

import (
	"encoding/base64"
	"testing"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		key string
		id  int64
	}{
		{"2024-03-01T12:00:00Z", 42},
		{"", 7},
		{"a,b", 1},
	}
	for _, tt := range tests {
		key, id, err := DecodeCursor(EncodeCursor(tt.key, tt.id))
		if err != nil {
			t.Fatalf("DecodeCursor(%q, %d): %v", tt.key, tt.id, err)
		}
		if key != tt.key || id != tt.id {
			t.Errorf("Expected (%q, %d), got (%q, %d)", tt.key, tt.id, key, id)
		}
	}
}

func TestDecodeCursorErrors(t *testing.T) {
	bad := map[string]string{
		"not base64":   "%%%",
		"no separator": base64.URLEncoding.EncodeToString([]byte("nothing")),
		"bad id":       base64.URLEncoding.EncodeToString([]byte("2024-01-01T00:00:00Z,x")),
		"zero id":      base64.URLEncoding.EncodeToString([]byte("2024-01-01T00:00:00Z,0")),
	}
	for name, cursor := range bad {
		t.Run(name, func(t *testing.T) {
			if _, _, err := DecodeCursor(cursor); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
