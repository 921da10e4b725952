package repository

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{term: "wid", want: "%wid%"},
		{term: "", want: "%%"},
		{term: "50%", want: `%50\%%`},
		{term: "a_b", want: `%a\_b%`},
		{term: `c:\tmp`, want: `%c:\\tmp%`},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.term))
		})
	}
}

func TestPriceBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max string
		lo, hi   string
		empty    bool
	}{
		{name: "cent bounds pass through", min: "10", max: "20", lo: "10", hi: "20"},
		{name: "equal bounds", min: "10", max: "10.00", lo: "10", hi: "10"},
		{name: "sub-cent bounds round inward", min: "9.991", max: "10.009", lo: "9.99", hi: "10"},
		{name: "negative min clamps to zero", min: "-5", max: "1", lo: "0", hi: "1"},
		{name: "huge max clamps to the largest price", min: "0", max: "1e30", lo: "0", hi: "9999999999999999.99"},
		{name: "inverted", min: "20", max: "10", empty: true},
		{name: "no cent inside", min: "9.991", max: "9.999", empty: true},
		{name: "entirely negative", min: "-10", max: "-1", empty: true},
		{name: "above the largest price", min: "1e17", max: "1e18", empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := priceBounds(decimal.RequireFromString(tt.min), decimal.RequireFromString(tt.max))
			if tt.empty {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.True(t, lo.Equal(decimal.RequireFromString(tt.lo)), "lo %s", lo)
			assert.True(t, hi.Equal(decimal.RequireFromString(tt.hi)), "hi %s", hi)
		})
	}
}
