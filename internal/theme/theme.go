// Package theme implements the Theme Resolver (spec.md §4.4): deriving a
// palette and per-element text-contrast colors from a primary color.
//
// Color math is grounded on github.com/lucasb-eyer/go-colorful, whose
// Color.Hsl()/Hsl() round-trip and Color.Luminance() implement exactly the
// HSL<->RGB conversion and "0.2126 R + 0.7152 G + 0.0722 B on linearized
// channels" formula spec.md §9 calls for, rather than hand-rolling it.
package theme

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Scheme is the palette derivation strategy (spec.md §3).
type Scheme string

const (
	SchemeMonochromatic Scheme = "monochromatic"
	SchemeComplementary Scheme = "complementary"
)

// Resolved is the derived theme a generator consumes (spec.md §4.4).
type Resolved struct {
	Scheme     Scheme
	Palette    []string // monochromatic: 7 shades; complementary: primary/secondary/accent
	Primary    string
	Secondary  string
	Accent     string
	Background string
	TextColor  string // top-level contrast text for Background
	Borders    []string
	SmartTheming bool

	hue, sat, lit float64 // primary's own HSL, retained for PaletteFor
}

// monochromaticLightness are the seven HSL lightness steps spec.md §4.4
// specifies: 0.15 to 0.85 at a fixed saturation.
var monochromaticLightness = []float64{0.15, 0.2667, 0.3833, 0.5, 0.6167, 0.7333, 0.85}

// Resolve fills in theme defaults and derives the palette.
//
// primaryHex must already have passed model.ValidHexColor; scheme defaults
// to monochromatic when empty. background defaults to white.
func Resolve(primaryHex, secondaryHex, accentHex string, scheme Scheme, background string, smartTheming bool) (Resolved, error) {
	primary, err := parseHex(primaryHex)
	if err != nil {
		return Resolved{}, fmt.Errorf("invalid primary_color: %w", err)
	}
	if background == "" {
		background = "#FFFFFF"
	}
	if scheme == "" {
		scheme = SchemeMonochromatic
	}

	r := Resolved{Scheme: scheme, Background: background, SmartTheming: smartTheming}
	r.TextColor = ContrastText(background)
	r.hue, r.sat, r.lit = primary.Hsl()

	switch scheme {
	case SchemeMonochromatic:
		h, s, _ := primary.Hsl()
		palette := make([]string, len(monochromaticLightness))
		for i, l := range monochromaticLightness {
			palette[i] = colorful.Hsl(h, s, l).Clamped().Hex()
		}
		r.Palette = palette
		r.Primary = palette[3]
	case SchemeComplementary:
		h, s, l := primary.Hsl()
		// A near-grayscale primary has no meaningful hue to rotate: derived
		// colors would otherwise collapse onto the same gray, violating the
		// pairwise-distinct invariant (spec.md §8).
		derivedSat := s
		if derivedSat < 0.15 {
			derivedSat = 0.15
		}
		secondary := secondaryHex
		if secondary == "" {
			secondary = colorful.Hsl(math.Mod(h+180, 360), derivedSat, l).Clamped().Hex()
		}
		accent := accentHex
		if accent == "" {
			accent = colorful.Hsl(math.Mod(h+120, 360), derivedSat, l).Clamped().Hex()
		}
		r.Primary = primary.Hex()
		r.Secondary = secondary
		r.Accent = accent
		r.Palette = []string{r.Primary, secondary, accent}
	default:
		return Resolved{}, fmt.Errorf("unknown scheme %q", scheme)
	}

	if smartTheming {
		r.Borders = append([]string(nil), r.Palette...)
	}
	return r, nil
}

// PaletteFor returns n pairwise-distinct fill colors for a Template
// Library Fill call with n slots, independent of len(r.Palette) — spec.md
// §4.5 requires the slot-to-color mapping to "avoid assigning the same
// color to two sibling quadrants", which a plain `palette[i % len(palette)]`
// cycle violates whenever n exceeds the base palette's length (e.g. a
// complementary theme's 3-color base against a matrix_2x2's 4 fill slots).
//
// Monochromatic: n lightness steps spaced evenly across [0.30, 0.80] at the
// primary's hue/saturation, strictly increasing with index (spec.md §8's
// pyramid scenario: 3 levels land on 0.30/0.55/0.80 exactly). Complementary:
// n hues spaced evenly around the color wheel starting at the primary's
// hue, so no two slots ever collide regardless of n.
func (r Resolved) PaletteFor(n int) []string {
	if n <= 0 {
		n = 1
	}
	sat := r.sat
	if sat < 0.15 {
		sat = 0.15 // near-grayscale primary: floor saturation so hue rotation stays visible
	}

	out := make([]string, n)
	switch r.Scheme {
	case SchemeComplementary:
		for i := 0; i < n; i++ {
			hue := math.Mod(r.hue+360*float64(i)/float64(n), 360)
			out[i] = colorful.Hsl(hue, sat, r.lit).Clamped().Hex()
		}
	default: // SchemeMonochromatic and unset
		const lo, hi = 0.30, 0.80
		for i := 0; i < n; i++ {
			l := lo
			if n > 1 {
				l = lo + (hi-lo)*float64(i)/float64(n-1)
			}
			out[i] = colorful.Hsl(r.hue, sat, l).Clamped().Hex()
		}
	}
	return out
}

// ContrastText returns "#000000" if bg's relative luminance is >= 0.5,
// else "#FFFFFF" (spec.md §4.4).
func ContrastText(bgHex string) string {
	bg, err := parseHex(bgHex)
	if err != nil {
		return "#000000"
	}
	if bg.Luminance() >= 0.5 {
		return "#000000"
	}
	return "#FFFFFF"
}

func parseHex(s string) (colorful.Color, error) {
	if len(s) == 6 {
		s = "#" + s
	}
	return colorful.Hex(s)
}
