package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/viant/gmetric"
)

// Options configures an HTTPClient.
type Options struct {
	BaseURL    string
	AdminToken string
	HTTPClient *http.Client
	// Timeout bounds every single HTTP attempt.
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	PageSize   int
	Metrics    *gmetric.Service
}

// HTTPClient is a Client for the catalog JSON API:
//
//	GET    /api/v1/{kind}/identifiers?collection=&issn=&offset=&limit=
//	POST   /api/v1/{kind}/add
//	DELETE /api/v1/{kind}/delete?code=&collection=
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	pageSize   int
	meter      *meter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient. BaseURL is required.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base URL: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	return &HTTPClient{
		baseURL:    baseURL,
		token:      strings.TrimSpace(opts.AdminToken),
		httpClient: httpClient,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		pageSize:   pageSize,
		meter:      &meter{service: opts.Metrics},
	}, nil
}

func (c *HTTPClient) Journals(ctx context.Context, collection, issn string) ([]Identifier, error) {
	return c.identifiers(ctx, KindJournal, collection, issn)
}

func (c *HTTPClient) Issues(ctx context.Context, collection, issn string) ([]Identifier, error) {
	return c.identifiers(ctx, KindIssue, collection, issn)
}

func (c *HTTPClient) Documents(ctx context.Context, collection, issn string) ([]Identifier, error) {
	return c.identifiers(ctx, KindArticle, collection, issn)
}

func (c *HTTPClient) AddJournal(ctx context.Context, payload []byte) error {
	return c.add(ctx, KindJournal, payload)
}

func (c *HTTPClient) AddIssue(ctx context.Context, payload []byte) error {
	return c.add(ctx, KindIssue, payload)
}

func (c *HTTPClient) AddDocument(ctx context.Context, payload []byte) error {
	return c.add(ctx, KindArticle, payload)
}

func (c *HTTPClient) DeleteJournal(ctx context.Context, code, collection string) error {
	return c.delete(ctx, KindJournal, code, collection)
}

func (c *HTTPClient) DeleteIssue(ctx context.Context, code, collection string) error {
	return c.delete(ctx, KindIssue, code, collection)
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, code, collection string) error {
	return c.delete(ctx, KindArticle, code, collection)
}

type identifiersPage struct {
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
	Objects []Identifier `json:"objects"`
}

// identifiers pages through the identifier listing of kind.
func (c *HTTPClient) identifiers(ctx context.Context, kind Kind, collection, issn string) (ids []Identifier, err error) {
	op := "list_" + string(kind)
	done := c.meter.begin(op)
	defer func() { done(err) }()

	offset := 0
	for {
		query := url.Values{}
		query.Set("collection", collection)
		if issn != "" {
			query.Set("issn", issn)
		}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))

		body, err := c.do(ctx, op, http.MethodGet, c.endpoint(kind, "identifiers", query), nil, true)
		if err != nil {
			return nil, err
		}

		var page identifiersPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode %s identifiers: %w", kind, err)
		}
		ids = append(ids, page.Objects...)
		offset += len(page.Objects)

		slog.Debug("catalog identifiers page",
			"kind", kind,
			"collection", collection,
			"offset", offset,
			"total", page.Meta.Total)

		if len(page.Objects) == 0 || offset >= page.Meta.Total {
			return ids, nil
		}
	}
}

func (c *HTTPClient) add(ctx context.Context, kind Kind, payload []byte) (err error) {
	op := "add_" + string(kind)
	done := c.meter.begin(op)
	defer func() { done(err) }()

	_, err = c.do(ctx, op, http.MethodPost, c.endpoint(kind, "add", nil), payload, true)
	return err
}

func (c *HTTPClient) delete(ctx context.Context, kind Kind, code, collection string) (err error) {
	op := "delete_" + string(kind)
	done := c.meter.begin(op)
	defer func() { done(err) }()

	query := url.Values{}
	query.Set("code", code)
	query.Set("collection", collection)
	_, err = c.do(ctx, op, http.MethodDelete, c.endpoint(kind, "delete", query), nil, false)
	return err
}

func (c *HTTPClient) endpoint(kind Kind, action string, query url.Values) string {
	u := c.baseURL + "/api/v1/" + string(kind) + "/" + action
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs one catalog call. When retry is set, transport errors, 429
// and 5xx responses are retried with exponential backoff.
func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, body []byte, retry bool) ([]byte, error) {
	maxRetries := 0
	if retry {
		maxRetries = c.maxRetries
	}

	for attempt := 0; ; attempt++ {
		status, header, respBody, err := c.attempt(ctx, method, endpoint, body)
		if err != nil {
			if ctx.Err() == nil && attempt < maxRetries {
				c.meter.retry(op)
				if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, fmt.Errorf("catalog %s: %w", op, err)
		}

		if status >= 200 && status <= 299 {
			return respBody, nil
		}

		if (status == http.StatusTooManyRequests || status >= 500) && attempt < maxRetries {
			c.meter.retry(op)
			slog.Debug("retrying catalog call", "op", op, "status", status, "attempt", attempt+1)
			if waitErr := sleepContext(ctx, c.retryDelay(attempt+1, header.Get("Retry-After"))); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		message := errorMessage(respBody)
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, fmt.Errorf("catalog %s: %w", op, ErrUnauthorized)
		case status >= 500:
			return nil, &ServerError{Op: op, Status: status, Message: message}
		default:
			return nil, &StatusError{Op: op, Status: status, Message: message}
		}
	}
}

// attempt performs a single HTTP request bounded by the client timeout.
func (c *HTTPClient) attempt(ctx context.Context, method, endpoint string, body []byte) (int, http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

func errorMessage(body []byte) string {
	message := strings.TrimSpace(string(body))
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		for _, key := range []string{"message", "error"} {
			if m, ok := parsed[key].(string); ok && strings.TrimSpace(m) != "" {
				return m
			}
		}
	}
	return message
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfterSeconds(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfterSeconds(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
