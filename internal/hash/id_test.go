package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"another string", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestNormalizeName_Equivalence(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		fold  bool
		equal bool
	}{
		{"identical", "docs/readme.md", "docs/readme.md", false, true},
		{"backslash separator", `docs\readme.md`, "docs/readme.md", false, true},
		{"directory slash", "docs/", "docs", false, true},
		{"case sensitive", "Docs/README.md", "docs/readme.md", false, false},
		{"case folded", "Docs/README.md", "docs/readme.md", true, true},
		{"different names", "a.txt", "b.txt", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, NormalizeName(tt.a, tt.fold) == NormalizeName(tt.b, tt.fold))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "a/b/c", NormalizeName(`a\b\c\`, false))
	assert.Equal(t, "a/b", NormalizeName("A/B/", true))
}
