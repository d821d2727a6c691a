package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var hexColor = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestForUser(t *testing.T) {
	a := ForUser("reader")
	assert.Regexp(t, hexColor, a.Background)
	assert.Contains(t, []string{"#FFFFFF", "#1A1A1A"}, a.Foreground)
	assert.Equal(t, a, ForUser("reader"))
	assert.NotEqual(t, a.Background, ForUser("writer").Background)
}

func TestHSLToRGB(t *testing.T) {
	tests := []struct {
		h, s, l float64
		r, g, b uint8
	}{
		{0, 1, 0.5, 255, 0, 0},
		{120, 1, 0.5, 0, 255, 0},
		{240, 1, 0.5, 0, 0, 255},
		{0, 0, 1, 255, 255, 255},
		{0, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := hslToRGB(tt.h, tt.s, tt.l)
		assert.Equal(t, []uint8{tt.r, tt.g, tt.b}, []uint8{r, g, b}, "hsl(%v,%v,%v)", tt.h, tt.s, tt.l)
	}
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "读", Initial("读者"))
	assert.Equal(t, "r", Initial("reader"))
	assert.Equal(t, "?", Initial(""))
}
