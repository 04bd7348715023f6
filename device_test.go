package labelprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirmwareString(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"ascii", []byte("LP-D1 v1.02"), "LP-D1 v1.02"},
		{"nul padded", append([]byte("v2.1"), 0, 0, 0, 0), "v2.1"},
		{"crlf trimmed", []byte("v1.0\r\n"), "v1.0"},
		{"binary", []byte{0x01, 0x02, 0xfe}, "01 02 fe"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firmwareString(tt.data))
		})
	}
}
