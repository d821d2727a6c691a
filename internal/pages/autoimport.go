package pages

import (
	"context"

	"github.com/legado-reader/legado-client/internal/watcher"
)

// ImportResult reports one file imported by AutoImport.
type ImportResult struct {
	Path  string
	Count int
	Err   error
}

// AutoImport imports every settled file reported on events until ctx ends
// or events is closed. Each attempt is reported to report, which may be nil.
func (p *Sources) AutoImport(ctx context.Context, events <-chan watcher.Event, report func(ImportResult)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Type != watcher.EventReady {
				continue
			}

			count, err := p.ImportFile(ctx, ev.Path)
			if err != nil {
				p.logger.Warn("source file import failed", "path", ev.Path, "error", err)
			} else {
				p.logger.Info("source file imported", "path", ev.Path, "sources", count)
			}
			if report != nil {
				report(ImportResult{Path: ev.Path, Count: count, Err: err})
			}
		}
	}
}
