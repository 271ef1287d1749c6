package plot

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknownPalette indicates a palette name Palette cannot resolve.
var ErrUnknownPalette = errors.New("plot: unknown palette")

// Qualitative palettes, cycled when more colors are requested.
var qualitative = map[string][]string{
	"deep": {
		"#4C72B0", "#DD8452", "#55A868", "#C44E52", "#8172B3",
		"#937860", "#DA8BC3", "#8C8C8C", "#CCB974", "#64B5CD",
	},
	"muted": {
		"#4878D0", "#EE854A", "#6ACC64", "#D65F5F", "#956CB4",
		"#8C613C", "#DC7EC0", "#797979", "#D5BB67", "#82C6E2",
	},
	"pastel": {
		"#A1C9F4", "#FFB482", "#8DE5A1", "#FF9F9B", "#D0BBFF",
		"#DEBB9B", "#FAB0E4", "#CFCFCF", "#FFFEA3", "#B9F2F0",
	},
	"bright": {
		"#023EFF", "#FF7C00", "#1AC938", "#E8000B", "#8B2BE2",
		"#9F4800", "#F14CC1", "#A3A3A3", "#FFC400", "#00D7FF",
	},
	"dark": {
		"#001C7F", "#B1400D", "#12711C", "#8C0800", "#591E71",
		"#592F0D", "#A23582", "#3C3C3C", "#B8850A", "#006374",
	},
	"colorblind": {
		"#0173B2", "#DE8F05", "#029E73", "#D55E00", "#CC78BC",
		"#CA9161", "#FBAFE4", "#949494", "#ECE133", "#56B4E9",
	},
}

// Hue offset, lightness and saturation of the hls and husl palettes.
const (
	hueOffset = 0.01

	hlsLightness  = 0.6
	hlsSaturation = 0.65

	huslLightness  = 0.65
	huslSaturation = 0.9
)

// Names lists the fixed palette names, plus the parametric "hls", "husl"
// and "blend:<color>,<color>" forms.
func Names() []string {
	return []string{"deep", "muted", "pastel", "bright", "dark", "colorblind", "hls", "husl"}
}

// Colors resolves n colors of the named palette.
func Colors(name string, n int) ([]color.Color, error) {
	cs, err := resolve(name, n)
	if err != nil {
		return nil, err
	}

	out := make([]color.Color, len(cs))
	for i, c := range cs {
		r, g, b := rgb255(c)
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 0xff}
	}

	return out, nil
}

// Palette resolves n colors of the named palette as "rgb(r,g,b)" strings
// with integer channels in [0, 255].
func Palette(name string, n int) ([]string, error) {
	cs, err := resolve(name, n)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(cs))
	for i, c := range cs {
		r, g, b := rgb255(c)
		out[i] = fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
	}

	return out, nil
}

func resolve(name string, n int) ([]colorful.Color, error) {
	if n < 0 {
		return nil, fmt.Errorf("plot: negative color count %d", n)
	}

	key := strings.ToLower(strings.TrimSpace(name))

	if hexes, ok := qualitative[key]; ok {
		out := make([]colorful.Color, n)
		for i := range out {
			c, err := colorful.Hex(hexes[i%len(hexes)])
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	switch {
	case key == "hls":
		return hls(n), nil
	case key == "husl":
		return husl(n), nil
	case strings.HasPrefix(key, "blend:"):
		return blend(strings.TrimPrefix(key, "blend:"), n)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
}

// hues returns n evenly spaced hues in [0, 1) starting at hueOffset.
func hues(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		h := float64(i)/float64(n) + hueOffset
		out[i] = h - math.Floor(h)
	}
	return out
}

func hls(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i, h := range hues(n) {
		out[i] = colorful.Hsl(h*360, hlsSaturation, hlsLightness)
	}
	return out
}

func husl(n int) []colorful.Color {
	out := make([]colorful.Color, n)
	for i, h := range hues(n) {
		out[i] = colorful.HSLuv(h*359, huslSaturation*0.99, huslLightness*0.99).Clamped()
	}
	return out
}

// blend interpolates linearly in RGB between comma-separated hex colors.
func blend(spec string, n int) ([]colorful.Color, error) {
	parts := strings.Split(spec, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: blend needs at least two colors, got %q", ErrUnknownPalette, spec)
	}

	stops := make([]colorful.Color, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if !strings.HasPrefix(p, "#") {
			p = "#" + p
		}

		c, err := colorful.Hex(p)
		if err != nil {
			return nil, fmt.Errorf("%w: blend color %q: %v", ErrUnknownPalette, parts[i], err)
		}
		stops[i] = c
	}

	out := make([]colorful.Color, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}

		pos := t * float64(len(stops)-1)
		k := min(int(pos), len(stops)-2)
		out[i] = stops[k].BlendRgb(stops[k+1], pos-float64(k))
	}

	return out, nil
}

func rgb255(c colorful.Color) (r, g, b uint8) {
	c = c.Clamped()
	return uint8(math.Round(c.R * 255)), uint8(math.Round(c.G * 255)), uint8(math.Round(c.B * 255))
}
