package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"hubclean/internal/ports"
	"hubclean/internal/shared"
	"hubclean/internal/types"
)

const defaultHubEndpoint = "https://hub.docker.com/v2"
const defaultHubPageSize = 100
const defaultHubTimeout = 30 * time.Second
const defaultHubRetries = 3
const defaultHubRetryDelay = 500 * time.Millisecond
const maxHubRetryDelay = 5 * time.Second

// DockerHubConfig configures the Docker Hub v2 API adapter. Zero values
// fall back to sensible defaults.
type DockerHubConfig struct {
	Endpoint     string
	Username     string
	Token        string
	Namespace    string
	PageSize     int
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
}

// RegistryDockerHubAdapter talks to the Docker Hub v2 API. Transient
// failures (network errors, 5xx) are retried a bounded number of times
// with capped exponential backoff; auth rejections are not.
type RegistryDockerHubAdapter struct {
	Endpoint   string
	Username   string
	Token      string
	Namespace  string
	PageSize   int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration

	// sleep is swapped out in tests to count backoff pauses.
	sleep func(time.Duration)
}

func NewRegistryDockerHubAdapter(cfg DockerHubConfig) *RegistryDockerHubAdapter {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultHubEndpoint
	}
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = strings.TrimSpace(cfg.Username)
	}
	return &RegistryDockerHubAdapter{
		Endpoint:   endpoint,
		Username:   strings.TrimSpace(cfg.Username),
		Token:      strings.TrimSpace(cfg.Token),
		Namespace:  namespace,
		PageSize:   normalizeHubPageSize(cfg.PageSize),
		Timeout:    normalizeHubTimeout(cfg.TimeoutSec),
		Retries:    normalizeHubRetries(cfg.Retries),
		RetryDelay: normalizeHubRetryDelay(cfg.RetryDelayMs),
		sleep:      time.Sleep,
	}
}

// Login authenticates against Docker Hub and returns a JWT token.
func (a *RegistryDockerHubAdapter) Login(ctx context.Context) (string, error) {
	if a.Username == "" || a.Token == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("dockerhub username and token must be set")
	}
	payload, err := json.Marshal(map[string]string{
		"username": a.Username,
		"password": a.Token,
	})
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode login request").
			WithCause(err)
	}
	loginURL := a.Endpoint + "/users/login"
	body, err := a.doWithRetry(ctx, http.MethodPost, loginURL, "", payload)
	if err != nil {
		return "", err
	}
	var response struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to parse login response").
			WithCause(err)
	}
	if strings.TrimSpace(response.Token) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("login response contained no token")
	}
	return response.Token, nil
}

// ListRepositories returns all repository names in the namespace.
func (a *RegistryDockerHubAdapter) ListRepositories(ctx context.Context, token string) ([]string, error) {
	listURL := fmt.Sprintf("%s/repositories/%s/?page_size=%d", a.Endpoint, url.PathEscape(a.Namespace), a.PageSize)
	items, err := a.paginate(ctx, token, listURL)
	if err != nil {
		return nil, err
	}
	repos := make([]string, 0, len(items))
	for _, item := range items {
		var entry struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if strings.TrimSpace(entry.Name) == "" {
			continue
		}
		repos = append(repos, entry.Name)
	}
	return repos, nil
}

// ListTags returns all tags of a repository sorted newest-first by last
// update. Tags without a timestamp sort last; equal timestamps keep
// their listing order.
func (a *RegistryDockerHubAdapter) ListTags(ctx context.Context, token string, repo string) ([]types.Tag, error) {
	assert.NotEmpty(ctx, repo, "repository name must be set")
	listURL := fmt.Sprintf("%s/repositories/%s/%s/tags/?page_size=%d",
		a.Endpoint, url.PathEscape(a.Namespace), url.PathEscape(repo), a.PageSize)
	items, err := a.paginate(ctx, token, listURL)
	if err != nil {
		return nil, err
	}
	tags := make([]types.Tag, 0, len(items))
	for _, item := range items {
		var entry struct {
			Name        string `json:"name"`
			LastUpdated string `json:"last_updated"`
		}
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		if strings.TrimSpace(entry.Name) == "" {
			continue
		}
		tags = append(tags, types.Tag{
			Name:        entry.Name,
			LastUpdated: parseTimeFlexible(entry.LastUpdated),
		})
	}
	sort.SliceStable(tags, func(i, j int) bool {
		left, right := tags[i].LastUpdated, tags[j].LastUpdated
		if left.IsZero() || right.IsZero() {
			return right.IsZero() && !left.IsZero()
		}
		return left.After(right)
	})
	return tags, nil
}

// DeleteTag removes one tag. A 404 counts as already deleted.
func (a *RegistryDockerHubAdapter) DeleteTag(ctx context.Context, token string, repo string, name string) error {
	assert.NotEmpty(ctx, repo, "repository name must be set")
	assert.NotEmpty(ctx, name, "tag name must be set")
	deleteURL := fmt.Sprintf("%s/repositories/%s/%s/tags/%s/",
		a.Endpoint, url.PathEscape(a.Namespace), url.PathEscape(repo), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, nil)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create delete request").
			WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("dockerhub delete tag failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		log.Ctx(ctx).Debug().Str("repo", repo).Str("tag", name).Msg("tag already gone")
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errbuilder.New().
			WithCode(hubErrorCode(resp.StatusCode)).
			WithMsg("dockerhub delete tag failed").
			WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, deleteURL, string(body)))
	}
	return nil
}

// paginate follows the next-page cursor until exhausted and returns the
// concatenated results of every page.
func (a *RegistryDockerHubAdapter) paginate(ctx context.Context, token string, pageURL string) ([]json.RawMessage, error) {
	var results []json.RawMessage
	for pageURL != "" {
		body, err := a.doWithRetry(ctx, http.MethodGet, pageURL, token, nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Next    string            `json:"next"`
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to parse dockerhub listing").
				WithCause(err)
		}
		results = append(results, page.Results...)
		pageURL = strings.TrimSpace(page.Next)
	}
	return results, nil
}

func (a *RegistryDockerHubAdapter) doWithRetry(ctx context.Context, method string, requestURL string, token string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < a.Retries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body, retry, err := a.doOnce(ctx, method, requestURL, token, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || attempt == a.Retries-1 {
			return nil, err
		}
		log.Ctx(ctx).Warn().
			Int("attempt", attempt+1).
			Str("url", requestURL).
			Msg("transient dockerhub failure, retrying")
		a.sleep(a.retryDelay(attempt))
	}
	return nil, lastErr
}

func (a *RegistryDockerHubAdapter) doOnce(ctx context.Context, method string, requestURL string, token string, payload []byte) ([]byte, bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create dockerhub request").
			WithCause(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: a.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, errbuilder.New().
			WithCode(errbuilder.CodeUnavailable).
			WithMsg("dockerhub request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, false, nil
	}
	retry := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
	return nil, retry, errbuilder.New().
		WithCode(hubErrorCode(resp.StatusCode)).
		WithMsg("dockerhub request failed").
		WithCause(shared.HTTPStatusErrorWithBody(resp.StatusCode, requestURL, string(body)))
}

func (a *RegistryDockerHubAdapter) retryDelay(attempt int) time.Duration {
	delay := a.RetryDelay * time.Duration(1<<attempt)
	if delay > maxHubRetryDelay {
		delay = maxHubRetryDelay
	}
	return delay
}

func hubErrorCode(status int) errbuilder.ErrCode {
	switch {
	case status == http.StatusUnauthorized:
		return errbuilder.CodeUnauthenticated
	case status == http.StatusForbidden:
		return errbuilder.CodePermissionDenied
	case status == http.StatusNotFound:
		return errbuilder.CodeNotFound
	case status >= http.StatusInternalServerError || status == http.StatusTooManyRequests:
		return errbuilder.CodeUnavailable
	default:
		return errbuilder.CodeInternal
	}
}

func normalizeHubPageSize(value int) int {
	if value <= 0 {
		return defaultHubPageSize
	}
	return value
}

func normalizeHubTimeout(value int) time.Duration {
	timeout := time.Duration(value) * time.Second
	if timeout <= 0 {
		return defaultHubTimeout
	}
	return timeout
}

func normalizeHubRetries(value int) int {
	if value <= 0 {
		return defaultHubRetries
	}
	return value
}

func normalizeHubRetryDelay(value int) time.Duration {
	delay := time.Duration(value) * time.Millisecond
	if delay <= 0 {
		return defaultHubRetryDelay
	}
	return delay
}

var _ ports.RegistryPort = (*RegistryDockerHubAdapter)(nil)
