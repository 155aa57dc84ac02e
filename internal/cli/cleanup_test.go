package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortIDs(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		expected []string
	}{
		{
			name:     "empty",
			ids:      nil,
			expected: nil,
		},
		{
			name:     "container ids truncate",
			ids:      []string{"abcdef0123456789deadbeefabcdef0123456789deadbeef"},
			expected: []string{"abcdef012345"},
		},
		{
			name:     "image ids lose the digest prefix",
			ids:      []string{"sha256:1b2c3d4e5f60718293a4b5c6d7e8f9001b2c3d4e5f607182"},
			expected: []string{"1b2c3d4e5f60"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortIDs(tt.ids))
		})
	}
}
