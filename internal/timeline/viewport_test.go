package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyViewport(t *testing.T) {
	tests := []struct {
		name         string
		scrollTop    int
		scrollHeight int
		clientHeight int
		epsilon      int
		want         ViewportState
	}{
		{"exactly at bottom", 500, 1000, 500, 10, AtBottom},
		{"within epsilon", 492, 1000, 500, 10, AtBottom},
		{"just outside epsilon", 489, 1000, 500, 10, ScrolledUp},
		{"far up", 0, 1000, 500, 10, ScrolledUp},
		{"content shorter than viewport", 0, 300, 500, 10, AtBottom},
		{"negative epsilon falls back to default", 492, 1000, 500, -1, AtBottom},
		{"zero epsilon is strict", 499, 1000, 500, 0, ScrolledUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyViewport(tt.scrollTop, tt.scrollHeight, tt.clientHeight, tt.epsilon)
			require.Equal(t, tt.want, got)
		})
	}
}
