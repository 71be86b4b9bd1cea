package svgtmpl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := LoadDir("../../templates")
	require.NoError(t, err)
	return lib
}

func TestLoadDirDiscoversEveryTemplate(t *testing.T) {
	lib := loadTestLibrary(t)
	require.True(t, lib.Has("matrix_2x2"))
	require.True(t, lib.Has("pyramid_3"))
	require.False(t, lib.Has("no-such-template"))
	require.NotEmpty(t, lib.IDs())
}

func TestLoadDirRejectsMissingDirectory(t *testing.T) {
	_, err := LoadDir("../../does-not-exist")
	require.Error(t, err)
}

func TestFillMapsLabelsAndColorsBySlotIndex(t *testing.T) {
	lib := loadTestLibrary(t)
	palette := []string{"#111111", "#222222", "#333333", "#444444"}
	labels := []string{"Q1", "Q2", "Q3", "Q4"}

	artifact, err := lib.Fill("matrix_2x2", labels, palette, false)
	require.NoError(t, err)
	require.NotNil(t, artifact.SVG)

	svg := artifact.SVG.Body
	require.Contains(t, svg, "Q1")
	require.Contains(t, svg, "Q4")
	require.Contains(t, svg, `fill="#111111"`)
	require.Contains(t, svg, `fill="#444444"`)
	require.False(t, strings.Contains(svg, "<title"), "Fill must strip every <title> element")
}

func TestFillLeavesShortLabelListsAtTemplateDefault(t *testing.T) {
	lib := loadTestLibrary(t)
	palette := []string{"#111111", "#222222", "#333333"}

	artifact, err := lib.Fill("pyramid_3", []string{"Apex"}, palette, false)
	require.NoError(t, err)
	svg := artifact.SVG.Body
	require.Contains(t, svg, "Apex")
	require.Contains(t, svg, "Level 2") // untouched default for the unfilled slot
}

func TestFillAppliesSmartThemingStrokeToMatchFill(t *testing.T) {
	lib := loadTestLibrary(t)
	palette := []string{"#ABCDEF"}

	artifact, err := lib.Fill("matrix_2x2", []string{"A", "B", "C", "D"}, palette, true)
	require.NoError(t, err)
	require.Contains(t, artifact.SVG.Body, `stroke="#ABCDEF"`)
}

func TestFillUnknownTemplateReturnsTemplateNotFound(t *testing.T) {
	lib := loadTestLibrary(t)
	_, err := lib.Fill("no-such-template", nil, []string{"#000000"}, false)
	require.Error(t, err)
}

func TestFillEmptyPaletteIsRejected(t *testing.T) {
	lib := loadTestLibrary(t)
	_, err := lib.Fill("matrix_2x2", []string{"A"}, nil, false)
	require.Error(t, err)
}

func TestFillDoesNotMutateCachedTemplate(t *testing.T) {
	lib := loadTestLibrary(t)
	palette := []string{"#FF0000"}

	first, err := lib.Fill("pyramid_3", []string{"Changed"}, palette, false)
	require.NoError(t, err)
	require.Contains(t, first.SVG.Body, "Changed")

	second, err := lib.Fill("pyramid_3", nil, palette, false)
	require.NoError(t, err)
	require.Contains(t, second.SVG.Body, "Level 1", "Fill must not mutate the cached template between calls")
	require.NotContains(t, second.SVG.Body, "Changed")
}

func TestParseSlotSpecAcceptsLegacyDashSyntax(t *testing.T) {
	role, idx, ok := parseSlotSpec("fill-2")
	require.True(t, ok)
	require.Equal(t, RoleFill, role)
	require.Equal(t, 2, idx)
}

func TestParseSlotSpecRejectsUnknownRole(t *testing.T) {
	_, _, ok := parseSlotSpec("glow:0")
	require.False(t, ok)
}
