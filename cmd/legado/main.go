// Package main is the legado command-line reader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/config"
	"github.com/legado-reader/legado-client/internal/di"
	"github.com/legado-reader/legado-client/internal/pages"
)

// command is one CLI subcommand.
type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "login [--username name] [--password secret]", "Sign in to the legado server", runLogin},
	{"register", "register [--username name] [--password secret]", "Create an account and sign in", runRegister},
	{"logout", "logout", "Sign out (reader settings are kept)", runLogout},
	{"whoami", "whoami", "Show the signed-in user", runWhoami},
	{"shelf", "shelf [--keyword text] | shelf rm <bookId>", "List or filter the bookshelf, or remove a book", runShelf},
	{"read", "read <bookId> [--chapter n] [--scroll px]", "Print a chapter and remember the position", runRead},
	{"search", "search <keyword>", "Search every enabled source", runSearch},
	{"add", "add <bookUrl> <sourceUrl>", "Add a search hit to the bookshelf", runAdd},
	{"sources", "sources [--keyword text] [--group name]", "List book sources", runSources},
	{"source", "source test|delete|enable|disable|export|import|import-url|add ...", "Manage one book source", runSource},
	{"settings", "settings [show | set key=value... | theme]", "Show or change reader settings", runSettings},
	{"serve", "serve", "Run the companion API", runServe},
	{"watch", "watch <dir>", "Import source files dropped into a directory", runWatch},
}

// errUsage marks a command line the command could not parse.
var errUsage = errors.New("usage")

// app is what a command runs against.
type app struct {
	injector do.Injector
	cfg      *config.Config
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	json     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("legado", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := config.RegisterFlags(fs)
	jsonOutput := fs.Bool("json", false, "Print results as JSON")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return 2
	}

	name := fs.Arg(0)
	idx := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if idx < 0 {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		printUsage(stderr, fs)
		return 2
	}
	cmd := commands[idx]

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	injector := di.NewContainer(cfg)
	defer func() {
		if report := injector.Shutdown(); !report.Succeed {
			fmt.Fprintf(stderr, "Shutdown error: %s\n", report.Error())
		}
	}()

	a := &app{
		injector: injector,
		cfg:      cfg,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		json:     *jsonOutput,
	}

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: legado %s\n", cmd.usage)
			return 2
		}
		fmt.Fprintf(stderr, "Error: %s\n", describe(err))
		return 1
	}
	return 0
}

// describe renders err the way the pages show it.
func describe(err error) string {
	notice := pages.NoticeFrom(err)
	if notice == nil {
		return err.Error()
	}
	if len(notice.Fields) == 0 {
		return notice.Message
	}

	fields := make([]string, 0, len(notice.Fields))
	for field, msg := range notice.Fields {
		fields = append(fields, field+": "+msg)
	}
	slices.Sort(fields)
	return notice.Message + " (" + strings.Join(fields, "; ") + ")"
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: legado [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}

// parseFlags parses a subcommand's flags. Flags may follow positional
// arguments; the positionals are returned in order.
func parseFlags(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
