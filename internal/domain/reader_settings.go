package domain

import "math"

// Reader display bounds.
const (
	MinFontSize   = 12
	MaxFontSize   = 32
	MinLineHeight = 1.2
	MaxLineHeight = 2.5

	DefaultFontSize   = 18
	DefaultLineHeight = 1.8
	DefaultFontFamily = "system-ui, sans-serif"

	FontSizeStep   = 2
	LineHeightStep = 0.2
)

// FontFamilies are the presets offered by the settings page.
var FontFamilies = []string{
	"system-ui, sans-serif",
	"'Songti SC', serif",
	"'Kaiti SC', STKaiti, serif",
	"'PingFang SC', sans-serif",
}

// Theme is the reader color scheme.
type Theme string

// Themes in toggle order.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
)

var themeCycle = []Theme{ThemeLight, ThemeDark, ThemeSepia}

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSepia:
		return true
	}
	return false
}

// Next returns the theme after t, wrapping from sepia to light.
// Unknown themes advance as if they were light.
func (t Theme) Next() Theme {
	for i, c := range themeCycle {
		if c == t {
			return themeCycle[(i+1)%len(themeCycle)]
		}
	}
	return ThemeDark
}

// PageMode is how chapter text is laid out.
type PageMode string

// Page modes.
const (
	PageModeScroll     PageMode = "scroll"
	PageModePagination PageMode = "pagination"
)

// Valid reports whether m is a known page mode.
func (m PageMode) Valid() bool {
	return m == PageModeScroll || m == PageModePagination
}

// ReaderSettings are the display preferences of the reader view.
type ReaderSettings struct {
	FontSize   int      `json:"fontSize"`
	LineHeight float64  `json:"lineHeight"`
	FontFamily string   `json:"fontFamily"`
	Theme      Theme    `json:"theme"`
	PageMode   PageMode `json:"pageMode"`
}

// DefaultReaderSettings returns the settings used on first launch.
func DefaultReaderSettings() ReaderSettings {
	return ReaderSettings{
		FontSize:   DefaultFontSize,
		LineHeight: DefaultLineHeight,
		FontFamily: DefaultFontFamily,
		Theme:      ThemeLight,
		PageMode:   PageModeScroll,
	}
}

// Normalize clamps numeric fields into range and replaces unknown or empty
// values with defaults. It never fails.
func (s ReaderSettings) Normalize() ReaderSettings {
	s.FontSize = ClampFontSize(s.FontSize)
	s.LineHeight = ClampLineHeight(s.LineHeight)
	if s.FontFamily == "" {
		s.FontFamily = DefaultFontFamily
	}
	if !s.Theme.Valid() {
		s.Theme = ThemeLight
	}
	if !s.PageMode.Valid() {
		s.PageMode = PageModeScroll
	}
	return s
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	FontSize   *int      `json:"fontSize,omitempty"`
	LineHeight *float64  `json:"lineHeight,omitempty"`
	FontFamily *string   `json:"fontFamily,omitempty"`
	Theme      *Theme    `json:"theme,omitempty"`
	PageMode   *PageMode `json:"pageMode,omitempty"`
}

// Apply merges p into s shallowly and normalizes the result.
func (s ReaderSettings) Apply(p SettingsPatch) ReaderSettings {
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	if p.LineHeight != nil {
		s.LineHeight = *p.LineHeight
	}
	if p.FontFamily != nil {
		s.FontFamily = *p.FontFamily
	}
	if p.Theme != nil && p.Theme.Valid() {
		s.Theme = *p.Theme
	}
	if p.PageMode != nil && p.PageMode.Valid() {
		s.PageMode = *p.PageMode
	}
	return s.Normalize()
}

// ClampFontSize bounds a font size to [MinFontSize, MaxFontSize].
func ClampFontSize(v int) int {
	return min(max(v, MinFontSize), MaxFontSize)
}

// ClampLineHeight bounds a line height to [MinLineHeight, MaxLineHeight].
// NaN falls back to the default.
func ClampLineHeight(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultLineHeight
	}
	return min(max(v, MinLineHeight), MaxLineHeight)
}

// StepLineHeight adds delta to v and rounds to two decimals so repeated
// steps do not accumulate float noise. The result is clamped.
func StepLineHeight(v, delta float64) float64 {
	return ClampLineHeight(math.Round((v+delta)*100) / 100)
}

// ReadingPosition is the last place the user read. BookID nil means no book.
type ReadingPosition struct {
	BookID       *int64 `json:"bookId"`
	ChapterIndex int    `json:"chapterIndex"`
	ScrollOffset int    `json:"scrollOffset"`
}

// SameBook reports whether the position refers to bookID.
func (p ReadingPosition) SameBook(bookID int64) bool {
	return p.BookID != nil && *p.BookID == bookID
}

// ClampChapter bounds index to a chapter list of length count.
// An empty list clamps to 0.
func ClampChapter(index, count int) int {
	if count <= 0 || index < 0 {
		return 0
	}
	return min(index, count-1)
}
