package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/do/v2"

	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/pages"
)

func runSettings(_ context.Context, a *app, args []string) error {
	settings := do.MustInvoke[*pages.Settings](a.injector)

	action := "show"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "show":
		if len(args) > 0 {
			return errUsage
		}
	case "theme":
		if len(args) > 0 {
			return errUsage
		}
		settings.ToggleTheme()
	case "set":
		if len(args) == 0 {
			return errUsage
		}
		patch, err := parsePatch(args)
		if err != nil {
			return err
		}
		settings.Update(patch)
	default:
		return errUsage
	}

	view := settings.View()
	if a.json {
		return a.printJSON(view)
	}

	s := view.Settings
	tw := a.table()
	fmt.Fprintf(tw, "fontSize\t%d\n", s.FontSize)
	fmt.Fprintf(tw, "lineHeight\t%.2f\n", s.LineHeight)
	fmt.Fprintf(tw, "fontFamily\t%s\n", s.FontFamily)
	fmt.Fprintf(tw, "theme\t%s\n", s.Theme)
	fmt.Fprintf(tw, "pageMode\t%s\n", s.PageMode)
	fmt.Fprintf(tw, "server\t%s\n", view.ServerURL)
	if view.User != nil {
		fmt.Fprintf(tw, "user\t%s\n", view.User.DisplayName())
	}
	return tw.Flush()
}

// parsePatch turns key=value pairs into a settings patch. Numbers out of
// range are clamped later; malformed numbers and unknown keys are errors.
func parsePatch(pairs []string) (domain.SettingsPatch, error) {
	var patch domain.SettingsPatch
	fields := map[string]string{}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			fields[pair] = "expected key=value"
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "fontSize":
			n, err := strconv.Atoi(value)
			if err != nil {
				fields[key] = "must be an integer"
				continue
			}
			patch.FontSize = &n
		case "lineHeight":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				fields[key] = "must be a number"
				continue
			}
			patch.LineHeight = &f
		case "fontFamily":
			patch.FontFamily = &value
		case "theme":
			theme := domain.Theme(value)
			if !theme.Valid() {
				fields[key] = "must be light, dark or sepia"
				continue
			}
			patch.Theme = &theme
		case "pageMode":
			mode := domain.PageMode(value)
			if !mode.Valid() {
				fields[key] = "must be scroll or pagination"
				continue
			}
			patch.PageMode = &mode
		default:
			fields[key] = "unknown setting"
		}
	}

	if len(fields) > 0 {
		return domain.SettingsPatch{}, domainerrors.ValidationFields("invalid settings", fields)
	}
	return patch, nil
}
