package paper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupStandardSize(t *testing.T) {
	a4, ok := LookupStandardSize("a4")
	require.True(t, ok)
	assert.Equal(t, Size{210, 297}, a4)

	letter, ok := LookupStandardSize("Letter")
	require.True(t, ok)
	assert.Equal(t, Size{216, 279}, letter)

	_, ok = LookupStandardSize("parchment-scroll")
	assert.False(t, ok)
}

func TestNormalizeVariants(t *testing.T) {
	for _, v := range []string{"A4", " a4 ", "a_4", "A 4"} {
		got, ok := LookupStandardSize(v)
		require.True(t, ok, "variant %q", v)
		assert.Equal(t, Size{210, 297}, got)
	}
}

// Looking a name up, normalizing it, and looking it up again must land
// on the same entry.
func TestNormalizeIdempotent(t *testing.T) {
	for _, name := range []string{"A4", "tabloid", "100X150", "Thermal_80"} {
		n1 := Normalize(name)
		n2 := Normalize(n1)
		assert.Equal(t, n1, n2, "normalize not idempotent for %q", name)

		s1, ok1 := LookupStandardSize(name)
		s2, ok2 := LookupStandardSize(n1)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, s1, s2)
	}
}

func TestAllDimensionsPositive(t *testing.T) {
	for name, s := range standardSizes {
		assert.Greater(t, s.WidthMM, 0.0, name)
		assert.Greater(t, s.HeightMM, 0.0, name)
	}
}

func TestCatalogBreadth(t *testing.T) {
	// ISO, North American, receipt and label families must all be present.
	assert.GreaterOrEqual(t, Count(), 30)
}
