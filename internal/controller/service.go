package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/collector"
	"github.com/dgnsrekt/tab_grouper/internal/reconcile"
	"github.com/dgnsrekt/tab_grouper/internal/types"
	"github.com/google/uuid"
)

// Browser is the capability surface one run needs.
type Browser interface {
	ListTabs(ctx context.Context, windowID int) ([]types.Tab, error)
	Ping(ctx context.Context) (string, error)
	collector.Extractor
	reconcile.Surface
}

// Oracle proposes clusters for a list of prompt lines and returns its text.
type Oracle interface {
	Cluster(ctx context.Context, lines []string) (string, error)
}

// Parser turns oracle text into clusters.
type Parser interface {
	Parse(text string) []types.ClusterSpec
}

// Recorder receives every completed run report.
type Recorder interface {
	Record(report types.RunReport) error
}

// Notifier is told about completed runs. Errors are logged only.
type Notifier func(ctx context.Context, report types.RunReport) error

// Options tunes a Service. Zero values are valid.
type Options struct {
	TabTimeout    time.Duration
	Recorder      Recorder
	Notify        Notifier
	NotifyTimeout time.Duration
}

// HealthStatus reports whether the bridge extension answers.
type HealthStatus struct {
	Status      string `json:"status"`
	ExtensionID string `json:"extension_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Service runs tab clustering against one browser.
type Service struct {
	browser Browser
	oracle  Oracle
	parser  Parser
	opts    Options

	mu      sync.Mutex
	windows map[int]*sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewService(browser Browser, oracle Oracle, parser Parser, opts Options) *Service {
	if opts.TabTimeout <= 0 {
		opts.TabTimeout = collector.DefaultTabTimeout
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &Service{
		browser: browser,
		oracle:  oracle,
		parser:  parser,
		opts:    opts,
		windows: make(map[int]*sync.Mutex),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// windowKey folds every "last focused window" id onto one lock.
func windowKey(windowID int) int {
	if windowID <= 0 {
		return 0
	}
	return windowID
}

func (s *Service) windowLock(windowID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := windowKey(windowID)
	l, ok := s.windows[key]
	if !ok {
		l = &sync.Mutex{}
		s.windows[key] = l
	}
	return l
}

// Cluster executes one run over the window: snapshot, collect, ask the
// oracle, parse, plan and apply. A second call for a window that is still
// running is rejected with RUN_IN_PROGRESS. Oracle failures abort before any
// tab is touched; per-tab mutation failures are reported, not returned.
func (s *Service) Cluster(ctx context.Context, windowID int) (types.RunReport, error) {
	lock := s.windowLock(windowID)
	if !lock.TryLock() {
		return types.RunReport{}, types.NewError(types.CodeRunInProgress,
			fmt.Sprintf("a clustering run is already in progress for window %d", windowKey(windowID)), nil)
	}
	defer lock.Unlock()

	started := s.now()
	report := types.RunReport{
		RunID:             s.newID(),
		WindowID:          windowID,
		StartedAt:         started.UTC(),
		Clusters:          []types.ClusterSpec{},
		Groups:            []types.AppliedGroup{},
		ExceptionTabIDs:   []int{},
		UnmatchedClusters: []string{},
		MovedTabs:         []int{},
		Failures:          []types.TabFailure{},
	}
	log := slog.With("run_id", report.RunID, "window_id", windowID)
	log.Info("cluster run started")

	tabs, err := s.browser.ListTabs(ctx, windowID)
	if err != nil {
		log.Warn("cluster run aborted", "step", "list_tabs", "error", err)
		return types.RunReport{}, err
	}
	report.TabCount = len(tabs)
	if len(tabs) == 0 {
		log.Info("cluster run found no tabs")
		return s.finish(ctx, report, started), nil
	}

	summaries, exceptions := collector.Collect(ctx, s.browser, tabs, s.opts.TabTimeout)

	reply, err := s.oracle.Cluster(ctx, collector.PromptLines(summaries))
	if err != nil {
		log.Warn("cluster run aborted", "step", "oracle", "error", err)
		return types.RunReport{}, err
	}

	report.Clusters = s.parser.Parse(reply)
	plan := reconcile.Plan(report.Clusters, tabs, exceptions)
	result := reconcile.Apply(ctx, s.browser, plan)

	report.Groups = result.Groups
	report.ExceptionTabIDs = plan.ExceptionTabIDs
	report.UnmatchedClusters = plan.UnmatchedClusterNames
	report.MovedTabs = result.MovedTabs
	report.Failures = result.Failures
	return s.finish(ctx, report, started), nil
}

func (s *Service) finish(ctx context.Context, report types.RunReport, started time.Time) types.RunReport {
	report.DurationMS = s.now().Sub(started).Milliseconds()
	slog.Info("cluster run finished",
		"run_id", report.RunID,
		"tabs", report.TabCount,
		"clusters", len(report.Clusters),
		"groups", len(report.Groups),
		"exceptions", len(report.ExceptionTabIDs),
		"failures", len(report.Failures),
		"duration_ms", report.DurationMS,
	)

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Record(report); err != nil {
			slog.Warn("run log record failed", "run_id", report.RunID, "error", err)
		}
	}
	if s.opts.Notify != nil {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotifyTimeout)
		if err := s.opts.Notify(nctx, report); err != nil {
			slog.Warn("run notification failed", "run_id", report.RunID, "error", err)
		}
		cancel()
	}
	return report
}

// ListTabs returns the window snapshot a run would start from.
func (s *Service) ListTabs(ctx context.Context, windowID int) ([]types.Tab, error) {
	return s.browser.ListTabs(ctx, windowID)
}

// Parse runs the cluster parser on supplied oracle text without touching
// the browser.
func (s *Service) Parse(_ context.Context, text string) ([]types.ClusterSpec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.NewError(types.CodeValidation, "text is required", nil)
	}
	return s.parser.Parse(text), nil
}

// Health pings the bridge extension.
func (s *Service) Health(ctx context.Context) (HealthStatus, error) {
	id, err := s.browser.Ping(ctx)
	if err != nil {
		return HealthStatus{Status: "unavailable", Error: err.Error()}, err
	}
	return HealthStatus{Status: "ok", ExtensionID: id}, nil
}
