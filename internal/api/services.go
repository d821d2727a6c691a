package api

import (
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/session"
)

// Services groups the pages and stores the API server drives.
type Services struct {
	Session    *session.Store
	Bookshelf  *pages.Bookshelf
	Reader     *pages.Reader
	Search     *pages.Search
	Sources    *pages.Sources
	SourceEdit *pages.SourceEdit
	Settings   *pages.Settings
	Login      *pages.Login
}
