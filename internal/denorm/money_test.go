package denorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount_LocalizedStrings(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"symbol thousands and decimals", "$3.900.000,50", 3900000.50},
		{"no symbol", "3.900.000,50", 3900000.50},
		{"symbol with space", "$ 1.250,75", 1250.75},
		{"decimals only", "1234,5", 1234.5},
		{"no decimals", "$15.000", 15000},
		{"byte slice from driver", []byte("$100,50"), 100.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseAmount(tt.input)
			require.NoError(t, err)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseAmount_NumericPassthrough(t *testing.T) {
	got, ok, err := ParseAmount(1500000.5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1500000.5, got)

	got, ok, err = ParseAmount(int64(2500))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2500.0, got)
}

func TestParseAmount_AbsentValues(t *testing.T) {
	for _, input := range []any{nil, "", "0", "  ", 0.0, int64(0), "0,00"} {
		_, ok, err := ParseAmount(input)
		assert.NoError(t, err, "input %v", input)
		assert.False(t, ok, "input %v", input)
	}
}

func TestParseAmount_UnparsableIsWarningNotFatal(t *testing.T) {
	// Given: a value that is present but not a money amount
	_, ok, err := ParseAmount("precio a convenir")

	// Then: the field is absent and the caller gets a warning to log
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestParseAmount_Idempotent(t *testing.T) {
	// Given: a localized input parsed to its canonical numeric form
	first, ok, err := ParseAmount("$3.900.000,50")
	require.NoError(t, err)
	require.True(t, ok)

	// When: parsing the canonical output again
	second, ok, err := ParseAmount(first)
	require.NoError(t, err)
	require.True(t, ok)

	// Then: the value is unchanged
	assert.Equal(t, first, second)
}
