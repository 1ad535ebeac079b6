package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := map[string]float64{
		"1 234,50":  1234.5,
		"197 ,00":   197,
		"1.234,50":  1234.5,
		"1,234.50":  1234.5,
		"12.5":      12.5,
		"1,234,567": 1234567,
		"1.234.567": 1234567,
		"$ 7.00":    7,
		"(3,5)":     -3.5,
		"-2":        -2,
	}
	for in, want := range cases {
		got, ok := ParseAmount(in)
		require.True(t, ok, in)
		require.InDelta(t, want, got, 1e-9, in)
	}

	got, ok := ParseAmount("2\u00a0345,6")
	require.True(t, ok)
	require.InDelta(t, 2345.6, got, 1e-9)

	for _, in := range []string{"", "  ", "-", "abc"} {
		_, ok := ParseAmount(in)
		require.False(t, ok, in)
	}
}
