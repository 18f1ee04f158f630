// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers harvested papers to a Slack incoming webhook.
// The orchestrator treats delivery as best-effort: a failed send is
// reported, never retried.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/arxiv-harvester/pkg/types"
)

// ErrNotifyFailed marks a delivery attempt that did not reach the
// webhook or was rejected by it.
var ErrNotifyFailed = errors.New("notification failed")

// maxMessageLength keeps messages well under Slack's limit.
const maxMessageLength = 3000

// maxPapersPerMessage caps how many papers one message lists.
const maxPapersPerMessage = 20

// Slack posts paper digests to an incoming webhook.
type Slack struct {
	// Client is the HTTP client used for delivery. Nil uses a default
	// with a 15s timeout.
	Client *http.Client

	// PreMessage is prepended to every digest.
	PreMessage string
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Notify formats papers into one digest message and posts it to
// webhookURL. Transport failures and non-2xx responses map to
// ErrNotifyFailed.
func (s *Slack) Notify(ctx context.Context, papers []types.Paper, webhookURL string) error {
	if len(papers) == 0 || webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(webhookPayload{Text: s.formatDigest(papers)})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned HTTP %d", ErrNotifyFailed, resp.StatusCode)
	}
	return nil
}

// formatDigest renders papers as one mrkdwn message, truncated to the
// message length cap.
func (s *Slack) formatDigest(papers []types.Paper) string {
	var b strings.Builder

	pre := s.PreMessage
	if pre == "" {
		pre = fmt.Sprintf("New arXiv papers matching your criteria (%d):", len(papers))
	}
	b.WriteString(pre)
	b.WriteString("\n\n")

	shown := papers
	if len(shown) > maxPapersPerMessage {
		shown = shown[:maxPapersPerMessage]
	}

	for _, p := range shown {
		b.WriteString(formatPaper(p))
	}

	if len(papers) > len(shown) {
		fmt.Fprintf(&b, "... and %d more\n", len(papers)-len(shown))
	}

	return truncate(b.String())
}

func formatPaper(p types.Paper) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s*\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(p.Authors, ", "))
	}
	if !p.Published.IsZero() {
		fmt.Fprintf(&b, "Published: %s\n", p.Published.Format("2006-01-02"))
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", p.Category)
	}
	if p.Summary != "" {
		fmt.Fprintf(&b, "Abstract: %s\n", p.Summary)
	}
	if p.SourceURL != "" {
		fmt.Fprintf(&b, "<%s|PDF>\n", p.SourceURL)
	}
	b.WriteString("\n")
	return b.String()
}

func truncate(msg string) string {
	if len(msg) <= maxMessageLength {
		return msg
	}
	return msg[:maxMessageLength-25] + "... (message truncated)"
}
