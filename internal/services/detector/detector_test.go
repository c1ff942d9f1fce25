package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/okanelab/bitbank-dca/internal/domain"
)

func TestDipFlags(t *testing.T) {
	btc := domain.Pair{Base: "btc", Quote: "jpy"}
	eth := domain.Pair{Base: "eth", Quote: "jpy"}

	tests := []struct {
		name      string
		changes   map[domain.Pair]float64
		threshold float64
		expected  map[domain.Pair]bool
	}{
		{
			name:      "drop beyond threshold flags",
			changes:   map[domain.Pair]float64{btc: -4.5, eth: -1.0},
			threshold: 3.0,
			expected:  map[domain.Pair]bool{btc: true, eth: false},
		},
		{
			name:      "exactly at threshold flags",
			changes:   map[domain.Pair]float64{btc: -3.0},
			threshold: 3.0,
			expected:  map[domain.Pair]bool{btc: true},
		},
		{
			name:      "positive change never flags",
			changes:   map[domain.Pair]float64{btc: 5.0},
			threshold: 3.0,
			expected:  map[domain.Pair]bool{btc: false},
		},
		{
			name:      "negative threshold is used by absolute value",
			changes:   map[domain.Pair]float64{btc: -4.0},
			threshold: -3.0,
			expected:  map[domain.Pair]bool{btc: true},
		},
		{
			name:      "empty change map",
			changes:   map[domain.Pair]float64{},
			threshold: 3.0,
			expected:  map[domain.Pair]bool{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DipFlags(tt.changes, tt.threshold))
		})
	}
}
