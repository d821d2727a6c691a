// Package domain contains the entities the reading client exchanges with the
// server and keeps locally.
package domain

import "strings"

// Book is a bookshelf entry as served by /api/v1/books.
type Book struct {
	ID                 int64       `json:"id"`
	BookURL            string      `json:"bookUrl"`
	TocURL             string      `json:"tocUrl,omitempty"`
	Origin             string      `json:"origin"`
	OriginName         string      `json:"originName,omitempty"`
	Name               string      `json:"name"`
	Author             string      `json:"author,omitempty"`
	Kind               string      `json:"kind,omitempty"`
	CustomTag          string      `json:"customTag,omitempty"`
	CoverURL           string      `json:"coverUrl,omitempty"`
	CustomCoverURL     string      `json:"customCoverUrl,omitempty"`
	Intro              string      `json:"intro,omitempty"`
	CustomIntro        string      `json:"customIntro,omitempty"`
	Charset            string      `json:"charset,omitempty"`
	Type               int         `json:"type"`
	GroupID            int64       `json:"groupId"`
	LatestChapterTitle string      `json:"latestChapterTitle,omitempty"`
	LatestChapterTime  int64       `json:"latestChapterTime,omitempty"`
	LastCheckTime      int64       `json:"lastCheckTime,omitempty"`
	TotalChapterNum    int         `json:"totalChapterNum"`
	DurChapterTitle    string      `json:"durChapterTitle,omitempty"`
	DurChapterIndex    int         `json:"durChapterIndex"`
	DurChapterPos      int         `json:"durChapterPos"`
	DurChapterTime     int64       `json:"durChapterTime,omitempty"`
	WordCount          string      `json:"wordCount,omitempty"`
	CanUpdate          bool        `json:"canUpdate"`
	Order              int         `json:"order"`
	OriginOrder        int         `json:"originOrder"`
	Variable           string      `json:"variable,omitempty"`
	ReadConfig         *ReadConfig `json:"readConfig,omitempty"`
	CreatedAt          string      `json:"createdAt,omitempty"`
	UpdatedAt          string      `json:"updatedAt,omitempty"`
}

// ReadConfig holds per-book reading options stored by the server.
type ReadConfig struct {
	ReverseToc       bool   `json:"reverseToc,omitempty"`
	PageAnim         int    `json:"pageAnim,omitempty"`
	ReSegment        bool   `json:"reSegment,omitempty"`
	ImageStyle       string `json:"imageStyle,omitempty"`
	UseReplaceRule   bool   `json:"useReplaceRule,omitempty"`
	TTSEngine        string `json:"ttsEngine,omitempty"`
	SplitLongChapter bool   `json:"splitLongChapter,omitempty"`
	ReadSimulating   bool   `json:"readSimulating,omitempty"`
	StartDate        string `json:"startDate,omitempty"`
	StartChapter     int    `json:"startChapter,omitempty"`
	DailyChapters    int    `json:"dailyChapters,omitempty"`
}

// DisplayCover returns the user's custom cover when set.
func (b *Book) DisplayCover() string {
	if b.CustomCoverURL != "" {
		return b.CustomCoverURL
	}
	return b.CoverURL
}

// DisplayIntro returns the user's custom intro when set.
func (b *Book) DisplayIntro() string {
	if b.CustomIntro != "" {
		return b.CustomIntro
	}
	return strings.TrimSpace(b.Intro)
}

// BookChapter is one entry of a book's table of contents.
type BookChapter struct {
	ID           int64  `json:"id"`
	BookID       int64  `json:"bookId"`
	ChapterIndex int    `json:"chapterIndex"`
	Title        string `json:"title,omitempty"`
	URL          string `json:"url,omitempty"`
	Content      string `json:"content,omitempty"`
	WordCount    int    `json:"wordCount,omitempty"`
	IsVIP        bool   `json:"isVip"`
	IsPay        bool   `json:"isPay"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// SearchResult is one hit of a cross-source search.
type SearchResult struct {
	Name               string `json:"name"`
	Author             string `json:"author,omitempty"`
	Intro              string `json:"intro,omitempty"`
	CoverURL           string `json:"coverUrl,omitempty"`
	BookURL            string `json:"bookUrl"`
	LatestChapterTitle string `json:"latestChapterTitle,omitempty"`
	WordCount          string `json:"wordCount,omitempty"`
	Kind               string `json:"kind,omitempty"`
	SourceName         string `json:"sourceName"`
	SourceURL          string `json:"sourceUrl"`
}
