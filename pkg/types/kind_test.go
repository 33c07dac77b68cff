package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want ItemKind
	}{
		{"module", KindModule},
		{"mod", KindModule},
		{"struct", KindStruct},
		{"union", KindUnion},
		{"function", KindFunction},
		{"fn", KindFunction},
		{"method", KindFunction},
		{"type", KindTypeAlias},
		{"const", KindConstant},
		{"bogus", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseKind(tt.in), "ParseKind(%q)", tt.in)
	}
}
