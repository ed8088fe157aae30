package ship

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dexterite/prguard/internal/github"
	"github.com/dexterite/prguard/internal/report"
)

// Destinations a report can be shipped to.
const (
	DestGitHubSummary   = "github-summary"
	DestFile            = "file"
	DestWebhook         = "webhook"
	DestGitHubPRComment = "github-pr-comment"
	DestNone            = "none"
)

// maxCommentChars is GitHub's effective limit for an issue comment body.
const maxCommentChars = 60000

const webhookTimeout = 30 * time.Second

// Options carry the destination-specific settings for one run.
type Options struct {
	Format      string
	FilePath    string
	WebhookURL  string
	GitHubToken string
}

// Shipper delivers a rendered report to one or more destinations. The env
// and API URL hooks exist for tests.
type Shipper struct {
	httpClient *http.Client
	env        func(string) string
	ghAPIURL   string
}

// New creates a Shipper.
func New() *Shipper {
	return &Shipper{
		httpClient: &http.Client{Timeout: webhookTimeout},
		env:        os.Getenv,
	}
}

// ShipAll delivers the report to each comma-separated destination. A failed
// destination does not stop the others; the first error is returned after
// all were attempted.
func (s *Shipper) ShipAll(ctx context.Context, destinations string, rep *report.Report, opts Options) error {
	var firstErr error
	for _, dest := range strings.Split(destinations, ",") {
		dest = strings.TrimSpace(dest)
		if dest == "" || dest == DestNone {
			continue
		}
		if err := s.Ship(ctx, dest, rep, opts); err != nil {
			slog.Error("shipping failed", "destination", dest, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("shipping to %s: %w", dest, err)
			}
			continue
		}
		slog.Info("report shipped", "destination", dest)
	}
	return firstErr
}

// Ship delivers the report to a single destination.
func (s *Shipper) Ship(ctx context.Context, dest string, rep *report.Report, opts Options) error {
	switch dest {
	case DestGitHubSummary:
		return s.shipGitHubSummary(rep)
	case DestFile:
		return s.shipFile(rep, opts)
	case DestWebhook:
		return s.shipWebhook(ctx, rep, opts)
	case DestGitHubPRComment:
		return s.shipPRComment(ctx, rep, opts)
	default:
		return fmt.Errorf("unknown ship destination: %s", dest)
	}
}

// shipGitHubSummary appends the markdown report to the Actions step summary.
// Outside of Actions the destination is a no-op.
func (s *Shipper) shipGitHubSummary(rep *report.Report) error {
	path := s.env("GITHUB_STEP_SUMMARY")
	if path == "" {
		slog.Warn("GITHUB_STEP_SUMMARY not set, skipping step summary")
		return nil
	}
	body, err := report.Render(rep, "markdown")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, body+"\n"); err != nil {
		return fmt.Errorf("writing step summary: %w", err)
	}
	return nil
}

// shipFile writes the report next to the workspace. The configured path gets
// the format's conventional extension unless it already carries one.
func (s *Shipper) shipFile(rep *report.Report, opts Options) error {
	body, err := report.Render(rep, opts.Format)
	if err != nil {
		return err
	}
	path := opts.FilePath
	if path == "" {
		path = "prguard-report"
	}
	if filepath.Ext(path) == "" {
		path += report.FileExtension(opts.Format)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}

// shipWebhook POSTs the JSON report to the configured endpoint.
func (s *Shipper) shipWebhook(ctx context.Context, rep *report.Report, opts Options) error {
	if opts.WebhookURL == "" {
		return fmt.Errorf("ship_webhook_url is not set")
	}
	body, err := report.Render(rep, "json")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", opts.WebhookURL, bytes.NewReader([]byte(body)))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// shipPRComment posts the markdown report as a PR comment. Repository and
// PR number come from the Actions environment.
func (s *Shipper) shipPRComment(ctx context.Context, rep *report.Report, opts Options) error {
	repo := s.env("GITHUB_REPOSITORY")
	if repo == "" {
		return fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	number, ok := github.PRNumberFromRef(s.env("GITHUB_REF"))
	if !ok {
		return fmt.Errorf("GITHUB_REF %q is not a pull request ref", s.env("GITHUB_REF"))
	}

	token := opts.GitHubToken
	if token == "" {
		token = s.env("GITHUB_TOKEN")
	}
	client, err := github.NewClient(token, s.ghAPIURL)
	if err != nil {
		return err
	}

	body, err := report.Render(rep, "markdown")
	if err != nil {
		return err
	}
	return client.PostIssueComment(ctx, repo, number, capComment(body))
}

// capComment truncates an oversized comment body, keeping it valid markdown.
func capComment(body string) string {
	if len(body) <= maxCommentChars {
		return body
	}
	suffix := "\n\n*(report truncated, see the workflow artifacts for the full version)*"
	return body[:maxCommentChars-len(suffix)] + suffix
}
