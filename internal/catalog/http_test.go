package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/gmetric"
)

func newTestClient(t *testing.T, handler http.Handler, mutate ...func(*Options)) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := Options{
		BaseURL:    srv.URL,
		AdminToken: "secret",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		PageSize:   2,
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewHTTPClient(opts)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(Options{})
	assert.Error(t, err)
}

func TestHTTPClient_IdentifiersPaged(t *testing.T) {
	all := []Identifier{
		{Collection: "scl", Code: "S0032-281X2002000300001", ProcessingDate: "2023-01-01"},
		{Collection: "scl", Code: "S0032-281X2002000300002", ProcessingDate: "2023-01-02"},
		{Collection: "scl", Code: "S0032-281X2002000300003", ProcessingDate: "2023-01-03"},
	}

	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/article/identifiers", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "scl", r.URL.Query().Get("collection"))
		assert.Equal(t, "0032-281X", r.URL.Query().Get("issn"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		end := offset + 2
		if end > len(all) {
			end = len(all)
		}
		page := identifiersPage{Objects: all[offset:end]}
		page.Meta.Total = len(all)
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	})

	c := newTestClient(t, handler)
	ids, err := c.Documents(context.Background(), "scl", "0032-281X")
	require.NoError(t, err)
	assert.Equal(t, all, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClient_IdentifiersWithoutISSN(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/journal/identifiers", r.URL.Path)
		_, hasISSN := r.URL.Query()["issn"]
		assert.False(t, hasISSN)
		_, _ = io.WriteString(w, `{"meta":{"total":1},"objects":[{"collection":"scl","code":"0032-281X"}]}`)
	})

	c := newTestClient(t, handler)
	ids, err := c.Journals(context.Background(), "scl", "")
	require.NoError(t, err)
	assert.Equal(t, []Identifier{{Collection: "scl", Code: "0032-281X"}}, ids)
}

func TestHTTPClient_AddPostsPayload(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/issue/add", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"code":"0032-281X20020003"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	})

	c := newTestClient(t, handler)
	assert.NoError(t, c.AddIssue(context.Background(), []byte(`{"code":"0032-281X20020003"}`)))
}

func TestHTTPClient_AddRetriesThenServerError(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"db down"}`)
	})

	c := newTestClient(t, handler)
	err := c.AddDocument(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.True(t, IsServerError(err))

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "add_article", se.Op)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "db down", se.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "one attempt plus two retries")
}

func TestHTTPClient_RetryRecovers(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, handler)
	assert.NoError(t, c.AddJournal(context.Background(), []byte(`{}`)))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPClient_DeleteUnauthorized(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/journal/delete", r.URL.Path)
		assert.Equal(t, "0032-281X", r.URL.Query().Get("code"))
		assert.Equal(t, "scl", r.URL.Query().Get("collection"))
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := newTestClient(t, handler)
	err := c.DeleteJournal(context.Background(), "0032-281X", "scl")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsServerError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClient_DeleteNotRetried(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, handler)
	err := c.DeleteDocument(context.Background(), "S0032-281X2002000300001", "scl")
	assert.True(t, IsServerError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPClient_StatusError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "bad payload")
	})

	c := newTestClient(t, handler)
	err := c.AddIssue(context.Background(), []byte(`{}`))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "bad payload", se.Message)
	assert.False(t, IsServerError(err))
}

func TestHTTPClient_PerCallTimeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	c := newTestClient(t, handler, func(o *Options) {
		o.Timeout = 20 * time.Millisecond
		o.MaxRetries = 0
	})
	err := c.AddJournal(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.False(t, IsServerError(err))
}

func TestHTTPClient_Metrics(t *testing.T) {
	metrics := gmetric.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	c := newTestClient(t, handler, func(o *Options) { o.Metrics = metrics })
	require.NoError(t, c.AddJournal(context.Background(), []byte(`{}`)))

	assert.NotNil(t, metrics.LookupOperation("catalog.add_journal"))
}

func TestRetryDelay(t *testing.T) {
	c := &HTTPClient{baseDelay: 100 * time.Millisecond, maxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, ""))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, ""))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, ""))
	assert.Equal(t, time.Second, c.retryDelay(10, ""))
	assert.Equal(t, time.Second, c.retryDelay(1, "30"), "Retry-After is capped")
	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, "soon"))
}
