// Package color derives stable badge colors for accounts.
package color

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Badge is a background and a readable foreground color, both "#RRGGBB".
type Badge struct {
	Background string `json:"background"`
	Foreground string `json:"foreground"`
}

// ForUser returns the badge colors for an account. The same username on any
// device yields the same colors.
func ForUser(username string) Badge {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.45, 0.6)
	fg := "#FFFFFF"
	if luminance(r, g, b) > 0.5 {
		fg = "#1A1A1A"
	}
	return Badge{
		Background: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		Foreground: fg,
	}
}

// Initial is the first letter shown inside the badge.
func Initial(name string) string {
	for _, c := range name {
		return string(c)
	}
	return "?"
}

// hslToRGB converts h in [0,360) and s, l in [0,1].
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r1, g1, b1 float64
	switch {
	case h < 60:
		r1, g1 = c, x
	case h < 120:
		r1, g1 = x, c
	case h < 180:
		g1, b1 = c, x
	case h < 240:
		g1, b1 = x, c
	case h < 300:
		r1, b1 = x, c
	default:
		r1, b1 = c, x
	}

	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(r1), to8(g1), to8(b1)
}

// luminance is the relative luminance of an sRGB color, in [0,1].
func luminance(r, g, b uint8) float64 {
	lin := func(v uint8) float64 {
		c := float64(v) / 255
		if c <= 0.03928 {
			return c / 12.92
		}
		return math.Pow((c+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
}
