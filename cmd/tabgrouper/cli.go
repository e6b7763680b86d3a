package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dgnsrekt/tab_grouper/internal/app"
	"github.com/dgnsrekt/tab_grouper/internal/browser"
	"github.com/dgnsrekt/tab_grouper/internal/config"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config, stdin io.Reader, stdout io.Writer) *cli.App {
	a := &cli.App{
		Name:    "tabgrouper",
		Usage:   "Group browser tabs by topic with a local language model",
		Version: Version,
		Writer:  stdout,
		Commands: []*cli.Command{
			clusterCmd(cfg, stdout),
			tabsCmd(cfg, stdout),
			parseCmd(cfg, stdin, stdout),
			launchCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	a.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return a
}

func windowFlag(cfg *config.Config) cli.Flag {
	return &cli.IntFlag{Name: "window", Aliases: []string{"w"}, Value: cfg.WindowID, Usage: "Browser window id (0 = last focused)"}
}

func clusterCmd(cfg *config.Config, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "Cluster the window's tabs and regroup them",
		Flags: []cli.Flag{windowFlag(cfg)},
		Action: func(c *cli.Context) error {
			a, err := app.New(c.Context, cfg, true)
			if err != nil {
				return outputError(err)
			}
			defer func() { _ = a.Close() }()

			report, err := a.Service.Cluster(c.Context, c.Int("window"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(stdout, map[string]any{"success": true, "report": report})
		},
	}
}

func tabsCmd(cfg *config.Config, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "tabs",
		Usage: "List the window's tabs",
		Flags: []cli.Flag{windowFlag(cfg)},
		Action: func(c *cli.Context) error {
			a, err := app.New(c.Context, cfg, true)
			if err != nil {
				return outputError(err)
			}
			defer func() { _ = a.Close() }()

			tabs, err := a.Service.ListTabs(c.Context, c.Int("window"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(stdout, tabs)
		},
	}
}

func parseCmd(cfg *config.Config, stdin io.Reader, stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse oracle text from stdin into clusters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "grammar", Aliases: []string{"g"}, Value: cfg.HeaderGrammarFile, Usage: "Header grammar YAML file"},
		},
		Action: func(c *cli.Context) error {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return outputError(err)
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				return outputError(types.NewError(types.CodeValidation, "oracle text must be piped via stdin", nil))
			}

			local := *cfg
			local.HeaderGrammarFile = c.String("grammar")
			p, err := app.NewParser(&local)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(stdout, map[string]any{"clusters": p.Parse(text)})
		},
	}
}

func launchCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Start Chromium with the bridge extension and wait for Ctrl-C",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "headless", Value: cfg.BrowserHeadless, Usage: "Run the browser headless"},
			&cli.StringFlag{Name: "profile", Value: cfg.BrowserProfileDir, Usage: "Browser profile directory"},
			&cli.StringFlag{Name: "url", Value: cfg.BrowserStartURL, Usage: "Start page"},
		},
		Action: func(c *cli.Context) error {
			l := browser.NewLauncher(browser.Config{
				CDPAddress:   cfg.CDPAddress,
				CDPPort:      cfg.CDPPort,
				StartURL:     c.String("url"),
				ProfileDir:   c.String("profile"),
				Headless:     c.Bool("headless"),
				BridgeFilter: cfg.BridgeFilter,
			})
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := l.Launch(ctx); err != nil {
				return outputError(err)
			}
			if !l.Running() {
				return nil
			}
			fmt.Fprintln(c.App.Writer, "browser ready at", l.CDPURL())
			<-ctx.Done()
			l.Stop()
			return nil
		},
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var coded *types.CodedError
	if errors.As(err, &coded) {
		return cli.Exit(fmt.Sprintf("[%s] %s", coded.Code, coded.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
