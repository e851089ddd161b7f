package handlers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/go-playground/assert/v2"
)

func TestTruncateRunesShortStringUntouched(t *testing.T) {
	assert.Equal(t, truncateRunes("hello", 100), "hello")
	assert.Equal(t, truncateRunes("", 100), "")
}

func TestTruncateRunesLimitsLength(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := truncateRunes(long, 100)
	assert.Equal(t, got, strings.Repeat("a", 100)+"...")
}

func TestTruncateRunesKeepsMultibyteIntact(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := truncateRunes(long, 100)
	assert.Equal(t, utf8.ValidString(got), true)
	assert.Equal(t, got, strings.Repeat("é", 100)+"...")
}
