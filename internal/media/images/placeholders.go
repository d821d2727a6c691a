package images

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/legado-reader/legado-client/internal/store"
)

// maxConcurrentFetches bounds parallel cover downloads.
const maxConcurrentFetches = 4

// Fetcher downloads a cover image.
type Fetcher interface {
	FetchRaw(ctx context.Context, url string) ([]byte, error)
}

// Placeholders computes cover BlurHashes and caches them in the KV store
// under the cover url.
type Placeholders struct {
	fetcher Fetcher
	kv      store.KV
	logger  *slog.Logger
}

// NewPlaceholders creates a placeholder cache.
func NewPlaceholders(fetcher Fetcher, kv store.KV, logger *slog.Logger) *Placeholders {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Placeholders{fetcher: fetcher, kv: kv, logger: logger}
}

// Get returns the BlurHash for a cover, fetching and hashing it on a cache
// miss.
func (p *Placeholders) Get(ctx context.Context, coverURL string) (string, error) {
	key := store.CoverHashKey(coverURL)
	if cached, err := p.kv.Get(ctx, key); err == nil {
		return string(cached), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		p.logger.Warn("cover hash cache read failed", "url", coverURL, "error", err)
	}

	data, err := p.fetcher.FetchRaw(ctx, coverURL)
	if err != nil {
		return "", err
	}
	hash, err := ComputeBlurHash(data)
	if err != nil {
		return "", err
	}

	if err := p.kv.Set(ctx, key, []byte(hash)); err != nil {
		p.logger.Warn("cover hash cache write failed", "url", coverURL, "error", err)
	}
	return hash, nil
}

// Many returns hashes for the given cover urls. Covers that fail are left
// out; the bookshelf simply shows no placeholder for them.
func (p *Placeholders) Many(ctx context.Context, coverURLs []string) map[string]string {
	results := make([]string, len(coverURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, u := range coverURLs {
		if u == "" {
			continue
		}
		g.Go(func() error {
			hash, err := p.Get(gctx, u)
			if err != nil {
				p.logger.Debug("cover placeholder unavailable", "url", u, "error", err)
				return nil
			}
			results[i] = hash
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(coverURLs))
	for i, u := range coverURLs {
		if results[i] != "" {
			out[u] = results[i]
		}
	}
	return out
}
