package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "empty string", input: "", expected: false},
		{name: "plain text", input: "　　第一章 风起\n　　天色渐暗。", expected: false},
		{name: "angle brackets but not HTML", input: "2 < 3 and <stdin>", expected: false},
		{name: "paragraph tags", input: "<p>天色渐暗。</p>", expected: true},
		{name: "uppercase break", input: "line<BR>line", expected: true},
		{name: "image", input: `<img src="a.png"/>`, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsHTML(tt.input))
		})
	}
}

func TestToMarkdown(t *testing.T) {
	assert.Equal(t, "plain", ToMarkdown("plain"))
	assert.Equal(t, "", ToMarkdown(""))

	md := ToMarkdown("<p>Hello <strong>world</strong></p><p>Second</p>")
	assert.Contains(t, md, "**world**")
	assert.Contains(t, md, "Second")
	assert.NotContains(t, md, "<p>")
}

func TestFoldKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Hello ", "hello"},
		{"ＡＢＣ１２３", "abc123"},
		{"斗破苍穹", "斗破苍穹"},
		{"STRASSE", "strasse"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FoldKeyword(tt.in))
		})
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("　　第一段。\r\n\r\n　　第二段。\n   \n  third  ")
	assert.Equal(t, []string{"第一段。", "第二段。", "third"}, got)

	assert.Empty(t, Paragraphs(""))
}

func TestDisplayWidth(t *testing.T) {
	assert.InDelta(t, 2.0, DisplayWidth("中文"), 1e-9)
	assert.InDelta(t, 1.0, DisplayWidth("ab"), 1e-9)
	assert.InDelta(t, 1.0, DisplayWidth("Ａ"), 1e-9)
}

func TestRender(t *testing.T) {
	ch := Render("第一章", "<p>天色渐暗。</p><p>风起了。</p>")
	assert.Equal(t, "第一章", ch.Title)
	assert.NotEmpty(t, ch.Markdown)
	assert.Equal(t, []string{"天色渐暗。", "风起了。"}, ch.Paragraphs)
	assert.Equal(t, "　　天色渐暗。\n　　风起了。", ch.Text())

	plain := Render("t", "　　one\n　　two")
	assert.Empty(t, plain.Markdown)
	assert.Len(t, plain.Paragraphs, 2)
}

func TestPaginate(t *testing.T) {
	t.Run("empty chapter has one page", func(t *testing.T) {
		pages := Paginate(nil, Viewport{Width: 100, Height: 100}, 20, 1.5)
		require.Len(t, pages, 1)
		assert.Empty(t, pages[0].Paragraphs)
	})

	t.Run("paragraphs flow onto new pages", func(t *testing.T) {
		// 10 ems per line, 5 lines per page; each paragraph takes 2 lines.
		vp := Viewport{Width: 200, Height: 100}
		para := strings.Repeat("字", 10)
		pages := Paginate([]string{para, para, para, para}, vp, 20, 1.0)

		require.Len(t, pages, 2)
		assert.Len(t, pages[0].Paragraphs, 2)
		assert.Len(t, pages[1].Paragraphs, 2)
		assert.Equal(t, 1, pages[1].Index)
	})

	t.Run("long paragraph is split", func(t *testing.T) {
		vp := Viewport{Width: 200, Height: 40} // 10 ems, 2 lines
		long := strings.Repeat("字", 50)
		pages := Paginate([]string{long}, vp, 20, 1.0)

		require.Greater(t, len(pages), 1)
		var joined strings.Builder
		for _, p := range pages {
			for _, piece := range p.Paragraphs {
				assert.LessOrEqual(t, lineCount(piece, 10), 2)
				joined.WriteString(piece)
			}
		}
		assert.Equal(t, long, joined.String())
	})

	t.Run("zero viewport uses default", func(t *testing.T) {
		pages := Paginate([]string{"a"}, Viewport{}, 18, 1.8)
		require.Len(t, pages, 1)
	})
}
