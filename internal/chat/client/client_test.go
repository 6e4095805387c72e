package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/vendorscope/internal/chat/domain"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(url string) config.Config {
	return config.Config{
		AIServiceURL:           url,
		AIServiceAPIKey:        "secret",
		AIServiceTimeout:       time.Second,
		AIServiceRetryAttempts: 3,
		AIServiceRetryDelay:    time.Millisecond,
	}
}

func TestProcessQueryRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, processQueryPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))

		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var body processQueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "top vendors by spend", body.Question)
		assert.Equal(t, "2024", body.Context["year"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sql":"SELECT 1","explanation":"one row","results":[{"n":1}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop())
	res, err := c.ProcessQuery(context.Background(), "top vendors by spend", map[string]any{"year": "2024"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "SELECT 1", res.SQL)
	assert.Equal(t, "one row", res.Explanation)
	require.Len(t, res.Results, 1)
	assert.EqualValues(t, 1, res.Results[0]["n"])
}

func TestProcessQueryDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "question not understood", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop())
	_, err := c.ProcessQuery(context.Background(), "???", nil)
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, err, domain.ErrAIServiceUnavailable)

	var statusErr *retry.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "question not understood", statusErr.Body)
}

func TestProcessQueryGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop())
	_, err := c.ProcessQuery(context.Background(), "spend by month", nil)

	require.ErrorIs(t, err, domain.ErrAIServiceUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestProcessQueryNormalizesMissingResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sql":"SELECT 1 WHERE false","explanation":"nothing"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop())
	res, err := c.ProcessQuery(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
}

func TestProcessQueryRejectsMalformedBodyWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL), zap.NewNop())
	_, err := c.ProcessQuery(context.Background(), "anything", nil)
	require.ErrorIs(t, err, domain.ErrAIServiceUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProcessQueryRequiresBaseURL(t *testing.T) {
	c := New(testConfig(""), zap.NewNop())
	_, err := c.ProcessQuery(context.Background(), "anything", nil)
	assert.ErrorIs(t, err, domain.ErrAIServiceUnavailable)
}
