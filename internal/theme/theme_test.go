package theme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveMonochromaticDerivesSevenShades(t *testing.T) {
	r, err := Resolve("#7C3AED", "", "", SchemeMonochromatic, "", false)
	require.NoError(t, err)
	require.Len(t, r.Palette, 7)
	require.Equal(t, r.Palette[3], r.Primary)
}

func TestResolveComplementaryDerivesSecondaryAndAccent(t *testing.T) {
	r, err := Resolve("#2563EB", "", "", SchemeComplementary, "", false)
	require.NoError(t, err)
	require.NotEmpty(t, r.Secondary)
	require.NotEmpty(t, r.Accent)
	require.NotEqual(t, r.Primary, r.Secondary)
	require.NotEqual(t, r.Primary, r.Accent)
}

func TestResolveDefaultsBackgroundAndScheme(t *testing.T) {
	r, err := Resolve("#2563EB", "", "", "", "", false)
	require.NoError(t, err)
	require.Equal(t, "#FFFFFF", r.Background)
	require.Equal(t, SchemeMonochromatic, r.Scheme)
}

func TestResolveRejectsInvalidPrimary(t *testing.T) {
	_, err := Resolve("not-a-color", "", "", SchemeMonochromatic, "", false)
	require.Error(t, err)
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	_, err := Resolve("#2563EB", "", "", Scheme("rainbow"), "", false)
	require.Error(t, err)
}

func TestPaletteForMonochromaticIsStrictlyIncreasingLightness(t *testing.T) {
	r, err := Resolve("#7C3AED", "", "", SchemeMonochromatic, "", false)
	require.NoError(t, err)

	palette := r.PaletteFor(3)
	require.Len(t, palette, 3)

	var prevLightness float64 = -1
	for _, hex := range palette {
		c, err := parseHex(hex)
		require.NoError(t, err)
		_, _, l := c.Hsl()
		require.Greater(t, l, prevLightness)
		prevLightness = l
	}
}

func TestPaletteForComplementaryNeverRepeatsBeyondBasePalette(t *testing.T) {
	r, err := Resolve("#2563EB", "", "", SchemeComplementary, "", false)
	require.NoError(t, err)

	palette := r.PaletteFor(4)
	require.Len(t, palette, 4)
	seen := map[string]bool{}
	for _, hex := range palette {
		require.False(t, seen[hex], "PaletteFor produced a repeated color for n=4 beyond the 3-color base palette")
		seen[hex] = true
	}
}

func TestPaletteForSingleSlot(t *testing.T) {
	r, err := Resolve("#2563EB", "", "", SchemeMonochromatic, "", false)
	require.NoError(t, err)
	require.Len(t, r.PaletteFor(0), 1)
	require.Len(t, r.PaletteFor(1), 1)
}

func TestContrastTextPicksReadableForeground(t *testing.T) {
	require.Equal(t, "#000000", ContrastText("#FFFFFF"))
	require.Equal(t, "#FFFFFF", ContrastText("#000000"))
}

func TestSmartThemingPopulatesBorders(t *testing.T) {
	r, err := Resolve("#2563EB", "", "", SchemeMonochromatic, "", true)
	require.NoError(t, err)
	require.Equal(t, r.Palette, r.Borders)

	r2, err := Resolve("#2563EB", "", "", SchemeMonochromatic, "", false)
	require.NoError(t, err)
	require.Nil(t, r2.Borders)
}
