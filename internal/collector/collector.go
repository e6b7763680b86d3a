// Package collector summarizes the tabs of one window for the clustering
// prompt.
package collector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/extract"
	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// DefaultTabTimeout bounds one tab's extraction when no timeout is given.
const DefaultTabTimeout = 5 * time.Second

// Extractor runs the page extractor inside one tab.
type Extractor interface {
	ExtractMetadata(ctx context.Context, tabID int) (extract.PageMetadata, error)
}

var errEmptyExtraction = errors.New("extractor returned no content")

// Collect summarizes every tab in order. A tab that cannot be scripted, fails,
// times out or yields nothing gets a "title - url" summary and is recorded as
// an exception. Browser-internal pages are never injected. Collect does not
// retry and never stops early.
func Collect(ctx context.Context, ex Extractor, tabs []types.Tab, perTab time.Duration) ([]types.TabSummary, types.TabIDSet) {
	if perTab <= 0 {
		perTab = DefaultTabTimeout
	}

	summaries := make([]types.TabSummary, 0, len(tabs))
	exceptions := types.NewTabIDSet()
	for _, tab := range tabs {
		summary, err := summarize(ctx, ex, tab, perTab)
		if err != nil {
			slog.Debug("collector extraction failed", "tab_id", tab.ID, "url", tab.URL, "error", err)
			summary = types.TabSummary{
				TabID:         tab.ID,
				Title:         tab.Title,
				URL:           tab.URL,
				ExtractedText: extract.FallbackLine(tab.Title, tab.URL),
			}
			exceptions.Add(tab.ID)
		}
		summaries = append(summaries, summary)
	}

	slog.Info("collector done", "tabs", len(tabs), "exceptions", len(exceptions))
	return summaries, exceptions
}

func summarize(ctx context.Context, ex Extractor, tab types.Tab, perTab time.Duration) (types.TabSummary, error) {
	if types.IsInternalURL(tab.URL) {
		return types.TabSummary{}, errors.New("browser-internal page")
	}

	tabCtx, cancel := context.WithTimeout(ctx, perTab)
	defer cancel()
	meta, err := ex.ExtractMetadata(tabCtx, tab.ID)
	if err != nil {
		return types.TabSummary{}, err
	}
	meta = meta.Normalize()
	if meta.Empty() {
		return types.TabSummary{}, errEmptyExtraction
	}
	if meta.URL == "" {
		meta.URL = tab.URL
	}
	return types.TabSummary{
		TabID:               tab.ID,
		Title:               tab.Title,
		URL:                 tab.URL,
		ExtractedText:       meta.PromptLine(),
		ExtractionSucceeded: true,
	}, nil
}

// PromptLines returns the summaries' texts in order.
func PromptLines(summaries []types.TabSummary) []string {
	out := make([]string, len(summaries))
	for i, s := range summaries {
		out[i] = s.ExtractedText
	}
	return out
}
