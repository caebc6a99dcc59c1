package textpipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseRemoverDefaults(t *testing.T) {
	remover, err := newNoiseRemover(nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		input   string
		removed int
		keeps   string
	}{
		{"url", "see https://example.com/a?b=c for details", 1, "see  for details"},
		{"www url", "visit www.example.com today", 1, "visit  today"},
		{"email", "write to dev@example.org please", 1, "write to  please"},
		{"page marker", "正文第 12 页继续", 1, "正文继续"},
		{"punct run", "done!!!!!!now", 1, "donenow"},
		{"short punct run kept", "wait... ok", 0, "wait... ok"},
		{"plain text", "nothing to strip here", 0, "nothing to strip here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n := remover.apply(tt.input)
			assert.Equal(t, tt.removed, n)
			assert.Equal(t, tt.keeps, got)
		})
	}
}

func TestNoiseRemoverCustomPatternsCompose(t *testing.T) {
	remover, err := newNoiseRemover([]string{`CONFIDENTIAL`})
	require.NoError(t, err)

	got, n := remover.apply("CONFIDENTIAL report at https://internal.example.com/x")
	assert.Equal(t, 2, n)
	assert.NotContains(t, got, "CONFIDENTIAL")
	assert.NotContains(t, got, "https://")
}

func TestNoiseRemoverInvalidPattern(t *testing.T) {
	_, err := newNoiseRemover([]string{`(`})
	assert.Error(t, err)
}
