package content

import (
	"math"
	"strings"
)

// Chapter is chapter content prepared for display.
type Chapter struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	// Markdown is set when the source content was HTML.
	Markdown string `json:"markdown,omitempty"`
}

// Render prepares raw chapter content. HTML is converted to markdown first
// so paragraphs never contain tags.
func Render(title, raw string) Chapter {
	ch := Chapter{Title: title}
	text := raw
	if ContainsHTML(raw) {
		ch.Markdown = ToMarkdown(raw)
		text = ch.Markdown
	}
	ch.Paragraphs = Paragraphs(text)
	return ch
}

// Text joins the paragraphs back with indentation, for terminal output.
func (c Chapter) Text() string {
	var b strings.Builder
	for i, p := range c.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("　　")
		b.WriteString(p)
	}
	return b.String()
}

// Viewport is the reading area in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultViewport is used when the caller does not know its size.
var DefaultViewport = Viewport{Width: 720, Height: 960}

// Page is one screen of a paginated chapter.
type Page struct {
	Index      int      `json:"index"`
	Paragraphs []string `json:"paragraphs"`
}

// Paginate splits paragraphs into pages for a viewport at the given font
// size (px) and line height (multiple of font size). Paragraphs longer than
// a page are split across pages. Every chapter has at least one page.
func Paginate(paragraphs []string, vp Viewport, fontSize int, lineHeight float64) []Page {
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = DefaultViewport
	}
	fontSize = max(fontSize, 1)
	lineHeight = max(lineHeight, 1)

	emsPerLine := max(math.Floor(float64(vp.Width)/float64(fontSize)), 1)
	linesPerPage := max(int(float64(vp.Height)/(float64(fontSize)*lineHeight)), 1)

	pages := []Page{{Index: 0}}
	used := 0
	for _, p := range paragraphs {
		for _, piece := range splitLines(p, emsPerLine, linesPerPage) {
			lines := lineCount(piece, emsPerLine)
			if used > 0 && used+lines > linesPerPage {
				pages = append(pages, Page{Index: len(pages)})
				used = 0
			}
			last := &pages[len(pages)-1]
			last.Paragraphs = append(last.Paragraphs, piece)
			used += lines
		}
	}
	return pages
}

// lineCount is the number of lines p occupies, counting the two-em indent.
func lineCount(p string, emsPerLine float64) int {
	return max(int(math.Ceil((DisplayWidth(p)+2)/emsPerLine)), 1)
}

// splitLines cuts a paragraph into pieces of at most maxLines lines.
func splitLines(p string, emsPerLine float64, maxLines int) []string {
	if lineCount(p, emsPerLine) <= maxLines {
		return []string{p}
	}

	budget := emsPerLine*float64(maxLines) - 2
	var pieces []string
	var cur strings.Builder
	var w float64
	for _, r := range p {
		rw := DisplayWidth(string(r))
		if w+rw > budget && cur.Len() > 0 {
			pieces = append(pieces, cur.String())
			cur.Reset()
			w = 0
		}
		cur.WriteRune(r)
		w += rw
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
