package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const defaultSettleDelay = 200 * time.Millisecond

// Browsers and editors write these next to the real file while it is in
// progress.
var partialPatterns = []string{"*.tmp", "*.part", "*.crdownload", "*.swp", "*~"}

// Options configures the watcher.
type Options struct {
	// Extensions limits events to files with these extensions (".json").
	// Empty means every file.
	Extensions []string
	// Skip holds extra filepath.Match patterns matched against the base name.
	Skip []string
	// SettleDelay is how long a file must stay unchanged before it is
	// reported. Zero means 200ms.
	SettleDelay time.Duration
	// IncludeHidden reports dot files too.
	IncludeHidden bool
}

func (o Options) settleDelay() time.Duration {
	if o.SettleDelay <= 0 {
		return defaultSettleDelay
	}
	return o.SettleDelay
}

// accepts reports whether changes to path are reported.
func (o Options) accepts(path string) bool {
	base := filepath.Base(path)
	if !o.IncludeHidden && strings.HasPrefix(base, ".") {
		return false
	}

	matches := func(pattern string) bool {
		ok, err := filepath.Match(pattern, base)
		return err == nil && ok
	}
	if slices.ContainsFunc(partialPatterns, matches) || slices.ContainsFunc(o.Skip, matches) {
		return false
	}

	if len(o.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	return slices.ContainsFunc(o.Extensions, func(want string) bool {
		return strings.EqualFold(ext, want)
	})
}
