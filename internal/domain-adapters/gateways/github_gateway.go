package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/astroimagej/aijpack/internal/domain/entities"
	"github.com/astroimagej/aijpack/internal/domain/interfaces"
)

const (
	// DefaultGitHubAPI is the public GitHub REST endpoint
	DefaultGitHubAPI = "https://api.github.com"
	// GitHubAPIVersion pins the REST API version sent with every request
	GitHubAPIVersion = "2022-11-28"
	// MaxWorkflowInputs is the workflow_dispatch input limit enforced by GitHub
	MaxWorkflowInputs = 10

	fetchAttempts   = 4
	firstRetryDelay = time.Second
	maxRetryDelay   = 32 * time.Second
	lowRateLimit    = 10
)

// RateLimitError reports an exhausted GitHub rate limit. It is never retried.
type RateLimitError struct {
	Reset time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return "GitHub API rate limit exceeded"
	}
	return "GitHub API rate limit exceeded, resets at " + e.Reset.Format(time.RFC3339)
}

// HTTPGitHubGateway dispatches release workflows and reads the published version index
type HTTPGitHubGateway struct {
	client    *http.Client
	token     string
	apiURL    string
	userAgent string
	delay     func(retry int) time.Duration
	logger    interfaces.Logger
}

// NewHTTPGitHubGateway creates a gateway for apiURL (DefaultGitHubAPI when empty)
func NewHTTPGitHubGateway(token, apiURL string) *HTTPGitHubGateway {
	if apiURL == "" {
		apiURL = DefaultGitHubAPI
	}
	return &HTTPGitHubGateway{
		client:    &http.Client{Timeout: 30 * time.Second},
		token:     token,
		apiURL:    strings.TrimSuffix(apiURL, "/"),
		userAgent: "aijpack/1.0",
		delay:     retryDelay,
		logger:    interfaces.Discard,
	}
}

// WithLogger sets the logger used for retry and rate limit warnings
func (g *HTTPGitHubGateway) WithLogger(logger interfaces.Logger) *HTTPGitHubGateway {
	g.logger = interfaces.OrNoOp(logger)
	return g
}

// retryDelay doubles from one second, capped at 32 seconds
func retryDelay(retry int) time.Duration {
	if retry >= 6 {
		return maxRetryDelay
	}
	return min(firstRetryDelay<<retry, maxRetryDelay)
}

// transient statuses are worth another attempt; 403 is how GitHub signals secondary rate limits
func transient(status int) bool {
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (g *HTTPGitHubGateway) rateLimit(resp *http.Response) error {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return nil
	}
	if remaining <= lowRateLimit {
		g.logger.Warn("GitHub rate limit low", interfaces.F("remaining", remaining))
	}
	if remaining > 0 {
		return nil
	}

	limitErr := &RateLimitError{}
	if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		limitErr.Reset = time.Unix(reset, 0).UTC()
	}
	return limitErr
}

// getWithRetry sends a GET up to fetchAttempts times while the failure looks transient.
// Dispatches never go through here.
func (g *HTTPGitHubGateway) getWithRetry(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 1; ; attempt++ {
		resp, err := g.client.Do(req)
		last := attempt == fetchAttempts
		switch {
		case err != nil:
			if ctx.Err() != nil || last {
				return nil, err
			}
		default:
			// The request that used up the quota still succeeded
			limitErr := g.rateLimit(resp)
			if limitErr != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
				//nolint:errcheck,gosec // G104: body is discarded
				resp.Body.Close()
				return nil, limitErr
			}
			if !transient(resp.StatusCode) || last {
				return resp, nil
			}
			//nolint:errcheck,gosec // G104: body is discarded before the next attempt
			resp.Body.Close()
		}

		g.logger.Debug("Retrying request", interfaces.F("url", req.URL.String()), interfaces.F("attempt", attempt+1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.delay(attempt - 1)):
		}
	}
}

func (g *HTTPGitHubGateway) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", GitHubAPIVersion)
	req.Header.Set("User-Agent", g.userAgent)
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// DispatchURL is the workflow_dispatch endpoint for a repository and workflow file
func (g *HTTPGitHubGateway) DispatchURL(repository, workflowFile string) string {
	return fmt.Sprintf("%s/repos/%s/actions/workflows/%s/dispatches", g.apiURL, repository, path.Base(workflowFile))
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// DispatchWorkflow fires a workflow_dispatch event. It is sent exactly once since a
// duplicate dispatch would start a second release run.
func (g *HTTPGitHubGateway) DispatchWorkflow(ctx context.Context, dispatch *entities.WorkflowDispatch) error {
	if g.token == "" {
		return fmt.Errorf("%w: a GitHub token is required to dispatch workflows", entities.ErrValidation)
	}
	if len(dispatch.Inputs) > MaxWorkflowInputs {
		return fmt.Errorf("%w: %d workflow inputs given, GitHub accepts at most %d", entities.ErrValidation, len(dispatch.Inputs), MaxWorkflowInputs)
	}

	ref := dispatch.Ref
	if ref == "" {
		ref = "master"
	}
	body, err := json.Marshal(dispatchRequest{Ref: ref, Inputs: dispatch.Inputs})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.DispatchURL(dispatch.Repository, dispatch.WorkflowFile), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to dispatch workflow: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err != nil {
			return fmt.Errorf("failed to dispatch workflow: status %d (failed to read response)", resp.StatusCode)
		}
		return fmt.Errorf("failed to dispatch workflow: status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// FetchVersions downloads and decodes the published versions.json
func (g *HTTPGitHubGateway) FetchVersions(ctx context.Context, url string) (*entities.Versions, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.getWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch versions: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch versions: HTTP %d from %s", resp.StatusCode, url)
	}

	var versions entities.Versions
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return nil, fmt.Errorf("failed to decode versions: %w", err)
	}
	return &versions, nil
}
