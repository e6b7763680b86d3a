// Package notify posts plain-text run summaries to an ntfy-style endpoint.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgnsrekt/tab_grouper/internal/types"
)

// Summary renders a one-paragraph description of a run.
func Summary(r types.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tab grouper run %s: %d tabs, %d groups", r.RunID, r.TabCount, len(r.Groups))
	if len(r.Groups) > 0 {
		names := make([]string, 0, len(r.Groups))
		for _, g := range r.Groups {
			names = append(names, fmt.Sprintf("%s (%d)", g.Name, len(g.TabIDs)))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, ", %d exceptions", len(r.ExceptionTabIDs))
	if n := len(r.Failures); n > 0 {
		fmt.Fprintf(&b, ", %d failures", n)
	}
	b.WriteString(".")
	return b.String()
}

// SendRunSummary posts Summary(r) to endpoint.
func SendRunSummary(ctx context.Context, client *http.Client, endpoint string, r types.RunReport) error {
	return Send(ctx, client, endpoint, Summary(r))
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("ntfy notification failed: endpoint is required")
	}
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
