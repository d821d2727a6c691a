// Command dbinspect prints what the client has persisted in its configured
// storage backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/di"
	"github.com/legado-reader/legado-client/internal/di/providers"
	"github.com/legado-reader/legado-client/internal/prefs"
	"github.com/legado-reader/legado-client/internal/store"
)

func main() {
	fs := flag.NewFlagSet("dbinspect", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	prefix := fs.String("prefix", "", "Also list keys starting with this prefix")
	all := fs.Bool("keys", false, "List every key")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	injector := di.NewContainer(cfg)
	defer injector.Shutdown()

	kv, err := do.Invoke[*providers.KVHandle](injector)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	fmt.Printf("=== %s storage at %s ===\n\n", kv.Backend, location(cfg))

	listPrefix := *prefix
	list := *all || listPrefix != ""
	if err := inspect(context.Background(), os.Stdout, kv.KV, list, listPrefix); err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}
}

func location(cfg *config.Config) string {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		return cfg.Storage.RedisAddr
	case config.BackendMemory:
		return "(memory)"
	}
	return cfg.Storage.Path
}

// inspect summarizes the well-known keys and optionally lists keys under
// prefix. It never writes to kv.
func inspect(ctx context.Context, w io.Writer, kv store.KV, list bool, prefix string) error {
	deviceID, err := kv.Get(ctx, store.KeyDeviceID)
	switch {
	case err == nil:
		fmt.Fprintf(w, "Device ID:  %s\n", deviceID)
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(w, "Device ID:  (not assigned yet)")
	default:
		return err
	}

	sealed, err := kv.Get(ctx, store.KeyAuthSession)
	switch {
	case err == nil:
		fmt.Fprintf(w, "Session:    stored (%d bytes, sealed)\n", len(sealed))
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(w, "Session:    none")
	default:
		return err
	}

	_, err = kv.Get(ctx, store.KeyReaderSettings)
	switch {
	case err == nil:
		snap := prefs.New(kv, nil).Get()
		s := snap.Settings
		fmt.Fprintf(w, "Settings:   font %d, line height %.2f, theme %s, mode %s\n", s.FontSize, s.LineHeight, s.Theme, s.PageMode)
		if snap.Position.BookID != nil {
			fmt.Fprintf(w, "Position:   book %d, chapter %d, offset %d\n",
				*snap.Position.BookID, snap.Position.ChapterIndex, snap.Position.ScrollOffset)
		}
	case errors.Is(err, store.ErrNotFound):
		fmt.Fprintln(w, "Settings:   defaults")
	default:
		return err
	}

	covers, err := kv.Keys(ctx, store.CoverHashPrefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Covers:     %d cached placeholders\n", len(covers))

	if !list {
		return nil
	}

	keys, err := kv.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nKeys (%d):\n", len(keys))
	for _, key := range keys {
		value, err := kv.Get(ctx, key)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %-40s %s", key, preview(key, value))
		if ts, ok := kv.(timestamped); ok {
			if at, err := ts.UpdatedAt(ctx, key); err == nil {
				line += "  (" + at.Local().Format(time.DateTime) + ")"
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// timestamped is implemented by backends that record write times.
type timestamped interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, error)
}

// preview shows the start of a value. The sealed session is never shown.
func preview(key string, value []byte) string {
	if key == store.KeyAuthSession {
		return fmt.Sprintf("<%d bytes>", len(value))
	}
	s := strings.Join(strings.Fields(string(value)), " ")
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
