package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	vars := map[string]any{
		"name":  "Alice",
		"count": 42,
		"ok":    true,
	}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"single", "Hello ${name}", "Hello Alice"},
		{"repeated", "${name} and ${name}", "Alice and Alice"},
		{"non-string value", "qty: ${count}", "qty: 42"},
		{"bool value", "ready: ${ok}", "ready: true"},
		{"unknown stays verbatim", "Hello ${missing}", "Hello ${missing}"},
		{"mixed", "${name}: ${missing}", "Alice: ${missing}"},
		{"malformed braces ignored", "${name", "${name"},
		{"empty name ignored", "${}", "${}"},
		{"invalid name ignored", "${1st}", "${1st}"},
		{"underscore name unbound", "${_x}", "${_x}"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.in, vars))
		})
	}
}

func TestSubstitute_nilVars(t *testing.T) {
	assert.Equal(t, "Hello ${name}", Substitute("Hello ${name}", nil))
}
