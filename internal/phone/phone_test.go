package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"local with trunk zero", "0521234567", "972521234567"},
		{"international plus", "+972521234567", "972521234567"},
		{"dashed", "972-52-1234567", "972521234567"},
		{"spaces and dashes", "052 123-4567", "972521234567"},
		{"already canonical", "972521234567", "972521234567"},
		{"parenthesized", "(052) 1234567", "972521234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	inputs := []string{"0521234567", "+972-52-1234567", "972521234567"}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), "canonicalizing %q twice", in)
	}
}

func TestCanonicalizeEquivalentForms(t *testing.T) {
	forms := []string{"0521234567", "+972521234567", "972-52-1234567"}
	want := Canonicalize(forms[0])
	for _, f := range forms[1:] {
		assert.Equal(t, want, Canonicalize(f))
	}
}

func TestFromChatID(t *testing.T) {
	assert.Equal(t, "972521234567", FromChatID("972521234567@c.us"))
	assert.Equal(t, "972521234567", FromChatID("0521234567"))
}

func TestToChatID(t *testing.T) {
	assert.Equal(t, "972521234567@c.us", ToChatID("972521234567"))
}
