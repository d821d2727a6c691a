package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/di/providers"
	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/pages"
)

func runShelf(ctx context.Context, a *app, args []string) error {
	shelf := do.MustInvoke[*pages.Bookshelf](a.injector)

	if len(args) > 0 && args[0] == "rm" {
		if len(args) != 2 {
			return errUsage
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		if err := shelf.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Removed book %d\n", id)
		return nil
	}

	fs := flag.NewFlagSet("shelf", flag.ContinueOnError)
	keyword := fs.String("keyword", "", "Filter by name, author or source")
	if rest, err := parseFlags(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}

	if err := shelf.Load(ctx); err != nil {
		return err
	}
	if err := shelf.Filter(ctx, *keyword); err != nil {
		return err
	}

	view := shelf.View()
	if a.json {
		return a.printJSON(view)
	}

	tw := a.table()
	fmt.Fprintln(tw, "ID\tNAME\tAUTHOR\tPROGRESS\tLATEST")
	for _, b := range view.Books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.Author, progressOf(b), b.LatestChapterTitle)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d of %d books\n", len(view.Books), view.Total)
	return nil
}

func progressOf(b domain.Book) string {
	if b.TotalChapterNum == 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", b.DurChapterIndex+1, b.TotalChapterNum)
}

func runRead(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	chapter := fs.Int("chapter", -1, "Chapter index (default: last read)")
	scroll := fs.Int("scroll", -1, "Scroll offset to record")
	rest, err := parseFlags(fs, args)
	if err != nil || len(rest) != 1 {
		return errUsage
	}
	bookID, err := parseID(rest[0])
	if err != nil {
		return err
	}

	reader := do.MustInvoke[*providers.ReaderHandle](a.injector)
	synchronizer := do.MustInvoke[*providers.SynchronizerHandle](a.injector)

	if err := reader.Open(ctx, bookID); err != nil {
		return err
	}
	if *chapter >= 0 {
		if err := reader.GoTo(ctx, *chapter); err != nil {
			return err
		}
	}
	if *scroll >= 0 {
		reader.Scroll(*scroll)
	}

	view := reader.View()

	// A one-shot read records where it ended instead of waiting out the debounce.
	synchronizer.Flush(ctx)

	if a.json {
		return a.printJSON(view)
	}

	fmt.Fprintf(a.stdout, "%s  [%d/%d] %s\n\n", view.Book.Name, view.ChapterIndex+1, view.ChapterCount, view.ChapterTitle)
	if view.Chapter != nil {
		for _, p := range view.Chapter.Paragraphs {
			fmt.Fprintf(a.stdout, "  %s\n\n", p)
		}
	}
	return nil
}

func runSearch(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	search := do.MustInvoke[*pages.Search](a.injector)
	if err := search.Submit(ctx, strings.Join(args, " ")); err != nil {
		return err
	}

	view := search.View()
	if a.json {
		return a.printJSON(view)
	}
	if len(view.Results) == 0 {
		fmt.Fprintln(a.stdout, "No results")
		return nil
	}

	tw := a.table()
	fmt.Fprintln(tw, "#\tNAME\tAUTHOR\tSOURCE\tBOOK URL")
	for i, r := range view.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, r.Name, r.Author, r.SourceName, r.BookURL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Add one with: legado add <bookUrl> <sourceUrl>")
	return nil
}

func runAdd(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	search := do.MustInvoke[*pages.Search](a.injector)
	book, err := search.AddResult(ctx, domain.SearchResult{BookURL: args[0], SourceURL: args[1]})
	if err != nil {
		return err
	}
	if a.json {
		return a.printJSON(book)
	}
	fmt.Fprintf(a.stdout, "Added %q (id %d)\n", book.Name, book.ID)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
