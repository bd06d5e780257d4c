package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandevgo/aizen/pkg/retry"
)

func TestFetch_FetchPage(t *testing.T) {
	tests := []struct {
		name            string
		args            json.RawMessage
		mockServer      func() *httptest.Server
		useShortTimeout bool
		wantErr         bool
		wantContains    string
		wantErrMsg      string
	}{
		{
			name: "successful HTML fetch",
			args: json.RawMessage(`{"url": "REPLACE_URL"}`),
			mockServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "text/html")
					w.WriteHeader(http.StatusOK)
					fmt.Fprint(w, `<html><body><h1>Market Update</h1><p>ETH holds above 3k</p></body></html>`)
				}))
			},
			wantContains: "Market Update",
		},
		{
			name: "successful JSON fetch",
			args: json.RawMessage(`{"url": "REPLACE_URL"}`),
			mockServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					fmt.Fprint(w, `{"tvl": 123}`)
				}))
			},
			wantContains: `{"tvl": 123}`,
		},
		{
			name: "404 error",
			args: json.RawMessage(`{"url": "REPLACE_URL"}`),
			mockServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				}))
			},
			wantErr:    true,
			wantErrMsg: "HTTP 404",
		},
		{
			name:       "invalid JSON args",
			args:       json.RawMessage(`{"invalid`),
			wantErr:    true,
			wantErrMsg: "invalid arguments",
		},
		{
			name:       "missing URL",
			args:       json.RawMessage(`{}`),
			wantErr:    true,
			wantErrMsg: "failed to fetch url",
		},
		{
			name: "large response gets truncated",
			args: json.RawMessage(`{"url": "REPLACE_URL"}`),
			mockServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "text/plain")
					w.WriteHeader(http.StatusOK)
					for i := 0; i < 1024*1024+100; i++ {
						w.Write([]byte("a"))
					}
				}))
			},
			wantContains: strings.Repeat("a", 1024*1024),
		},
		{
			name: "timeout handling",
			args: json.RawMessage(`{"url": "REPLACE_URL"}`),
			mockServer: func() *httptest.Server {
				return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(500 * time.Millisecond)
				}))
			},
			useShortTimeout: true,
			wantErr:         true,
			wantErrMsg:      "failed to fetch url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var server *httptest.Server
			args := tt.args

			if tt.mockServer != nil {
				server = tt.mockServer()
				defer server.Close()
				args = json.RawMessage(strings.Replace(string(tt.args), "REPLACE_URL", server.URL, 1))
			}

			retryCfg := &retry.Config{
				MaxRetries:    2,
				InitialDelay:  time.Millisecond,
				MaxDelay:      time.Millisecond,
				BackoffFactor: 1.0,
			}

			var fetch *Fetch
			if tt.useShortTimeout {
				fetch = NewFetchWithTimeout(100*time.Millisecond, retryCfg)
			} else {
				fetch = NewFetchWithTimeout(defaultFetchTimeout, retryCfg)
			}

			result, err := fetch.FetchPage(context.Background(), args)

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrMsg != "" {
					assert.Contains(t, err.Error(), tt.wantErrMsg)
				}
			} else {
				require.NoError(t, err)
				if tt.wantContains != "" {
					assert.Contains(t, result, tt.wantContains)
				}
			}
		})
	}
}

func TestFetch_RetryBehavior(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Success after retries")
	}))
	defer server.Close()

	fetch := NewFetch()
	args := json.RawMessage(fmt.Sprintf(`{"url": "%s"}`, server.URL))

	result, err := fetch.FetchPage(context.Background(), args)

	require.NoError(t, err)
	assert.Contains(t, result, "Success after retries")
	assert.Equal(t, 3, attempts, "should retry failed requests")
}

func TestFetch_UserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetch := NewFetch()
	args := json.RawMessage(fmt.Sprintf(`{"url": "%s"}`, server.URL))

	_, err := fetch.FetchPage(context.Background(), args)

	require.NoError(t, err)
	assert.Contains(t, receivedUA, "Aizen", "should set custom user agent")
}
