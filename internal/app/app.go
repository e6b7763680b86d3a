// Package app wires configuration into a running clustering service.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/config"
	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/notify"
	"github.com/dgnsrekt/tab_grouper/internal/oracle"
	"github.com/dgnsrekt/tab_grouper/internal/parser"
	"github.com/dgnsrekt/tab_grouper/internal/runlog"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// App owns the long-lived clients behind a Service.
type App struct {
	Service *controller.Service
	CDP     *cdpcontrol.Client
	runs    *runlog.Writer
}

// NewParser builds the cluster parser from the configured grammar file.
func NewParser(cfg *config.Config) (*parser.Parser, error) {
	grammar, err := config.LoadHeaderGrammar(cfg.HeaderGrammarFile)
	if err != nil {
		return nil, err
	}
	return parser.New(grammar)
}

// New connects to the browser bridge and builds the service. connect=false
// defers the CDP connection to the first call.
func New(ctx context.Context, cfg *config.Config, connect bool) (*App, error) {
	p, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}

	cdp := cdpcontrol.NewClient(cfg.CDPURL(), cfg.BridgeFilter, cfg.EvalTimeout())
	if connect {
		if err := cdp.Connect(ctx); err != nil {
			return nil, err
		}
	}

	oc := oracle.New(
		oracle.WithBaseURL(cfg.OracleBaseURL),
		oracle.WithModel(cfg.OracleModel),
		oracle.WithAPIKey(cfg.OracleAPIKey),
		oracle.WithTimeout(cfg.OracleTimeout()),
	)

	a := &App{CDP: cdp}
	opts := controller.Options{TabTimeout: cfg.EvalTimeout()}
	if cfg.RunLogDir != "" {
		a.runs = runlog.New(cfg.RunLogDir, 64, 50)
		opts.Recorder = a.runs
	}
	if cfg.NotifyEndpoint != "" {
		endpoint := cfg.NotifyEndpoint
		opts.Notify = func(ctx context.Context, r types.RunReport) error {
			return notify.SendRunSummary(ctx, http.DefaultClient, endpoint, r)
		}
	}
	a.Service = controller.NewService(cdp, oc, p, opts)

	slog.Info("tab grouper service ready",
		"cdp_url", cfg.CDPURL(),
		"bridge_filter", cfg.BridgeFilter,
		"oracle_base_url", cfg.OracleBaseURL,
		"oracle_model", oc.Model(),
		"run_log_dir", cfg.RunLogDir,
		"notify", cfg.NotifyEndpoint != "",
	)
	return a, nil
}

// Close flushes the run log and detaches from the browser.
func (a *App) Close() error {
	var err error
	if a.runs != nil {
		err = a.runs.Close()
	}
	if cerr := a.CDP.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
