package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/di"
	"github.com/legado-reader/legado-client/internal/di/providers"
)

func runServe(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}

	handle, err := di.Serve(a.injector)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Companion API on http://%s (events at /api/v1/events)\n", handle.BoundAddr)

	<-ctx.Done()
	di.Logger(a.injector).Info("Shutting down companion API")
	return nil
}

func runWatch(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	handle, err := do.Invoke[*providers.SourceWatcherHandle](a.injector)
	if err != nil {
		return err
	}
	if err := handle.Watch(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Watching %s for source files\n", args[0])

	<-ctx.Done()
	return nil
}
