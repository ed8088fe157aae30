package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.github.com"

// prRefPattern matches Actions checkout refs like "refs/pull/123/merge".
var prRefPattern = regexp.MustCompile(`^refs/pull/(\d+)/`)

// Client provides the slice of the GitHub REST API prguard needs.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewClient creates a GitHub client. apiURL may be empty for api.github.com;
// GitHub Enterprise hosts pass their own.
func NewClient(token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is not set (github_token or GITHUB_TOKEN)")
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		token:   token,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// PRNumberFromRef extracts the pull request number from a GITHUB_REF value.
func PRNumberFromRef(ref string) (int, bool) {
	m := prRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

type commentRequest struct {
	Body string `json:"body"`
}

// PostIssueComment posts a comment on a pull request. PR comments use the
// issues endpoint; the pulls comment endpoint is for inline review comments.
func (c *Client) PostIssueComment(ctx context.Context, ownerRepo string, number int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", c.apiURL, ownerRepo, number)

	payload, err := json.Marshal(commentRequest{Body: body})
	if err != nil {
		return fmt.Errorf("marshaling comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return fmt.Errorf("posting comment: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == 404:
		return fmt.Errorf("PR #%d not found in %s", number, ownerRepo)
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode, string(respBody))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
