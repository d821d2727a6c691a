package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/pages"
	"github.com/legado-reader/legado-client/internal/session"
)

// credentials reads the username and password from flags, LEGADO_PASSWORD
// or, for anything still missing, one line each of stdin.
type credentials struct {
	username string
	password string
	email    string
}

func (c *credentials) register(fs *flag.FlagSet, withEmail bool) {
	fs.StringVar(&c.username, "username", "", "Account name")
	fs.StringVar(&c.password, "password", "", "Password (default: $LEGADO_PASSWORD or prompt)")
	if withEmail {
		fs.StringVar(&c.email, "email", "", "Email address")
	}
}

func (c *credentials) complete(a *app) error {
	if c.password == "" {
		c.password = os.Getenv("LEGADO_PASSWORD")
	}
	if c.username != "" && c.password != "" {
		return nil
	}

	scanner := bufio.NewScanner(a.stdin)
	prompt := func(label string) (string, error) {
		fmt.Fprint(a.stderr, label+": ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
			}
			return "", nil
		}
		return strings.TrimSpace(scanner.Text()), nil
	}

	var err error
	if c.username == "" {
		if c.username, err = prompt("Username"); err != nil {
			return err
		}
	}
	if c.password == "" {
		if c.password, err = prompt("Password"); err != nil {
			return err
		}
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	var creds credentials
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	creds.register(fs, false)
	if rest, err := parseFlags(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}
	if err := creds.complete(a); err != nil {
		return err
	}

	login := do.MustInvoke[*pages.Login](a.injector)
	sess, err := login.Login(ctx, domain.LoginRequest{Username: creds.username, Password: creds.password})
	if err != nil {
		return err
	}
	return a.printSession(sess)
}

func runRegister(ctx context.Context, a *app, args []string) error {
	var creds credentials
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	creds.register(fs, true)
	if rest, err := parseFlags(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}
	if err := creds.complete(a); err != nil {
		return err
	}

	login := do.MustInvoke[*pages.Login](a.injector)
	sess, err := login.Register(ctx, domain.RegisterRequest{
		Username: creds.username,
		Password: creds.password,
		Email:    creds.email,
	})
	if err != nil {
		return err
	}
	return a.printSession(sess)
}

func runLogout(_ context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	do.MustInvoke[*pages.Settings](a.injector).Logout()
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func runWhoami(_ context.Context, a *app, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	return a.printSession(do.MustInvoke[*session.Store](a.injector).Current())
}

// printSession shows who is signed in. The token is never printed.
func (a *app) printSession(sess domain.Session) error {
	if a.json {
		return a.printJSON(struct {
			Authenticated bool         `json:"authenticated"`
			User          *domain.User `json:"user,omitempty"`
		}{sess.IsAuthenticated(), sess.User})
	}
	if !sess.IsAuthenticated() {
		fmt.Fprintln(a.stdout, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.stdout, "Logged in as %s on %s\n", sess.User.DisplayName(), a.cfg.Server.BaseURL)
	return nil
}
