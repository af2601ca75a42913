// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/addon-container/pkg/addon"
	apperrors "github.com/NVIDIA/addon-container/pkg/errors"
	"github.com/NVIDIA/addon-container/pkg/registry"
)

func TestNew(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/test": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	}))

	require.NotNil(t, s.config)
	require.NotNil(t, s.httpServer)
	require.NotNil(t, s.rateLimiter)
	assert.Contains(t, s.config.Handlers, "/test")
	assert.Contains(t, s.config.Handlers, "/", "default root handler is added")
}

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "")
		cfg := parseConfig()

		assert.Equal(t, "addond", cfg.Name)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("PORT", "8181")
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "5")
		cfg := parseConfig()

		assert.Equal(t, 8181, cfg.Port)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("invalid environment ignored", func(t *testing.T) {
		t.Setenv("PORT", "invalid")
		t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "-1")
		cfg := parseConfig()

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := New()

	w := httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = httptest.NewRecorder()
	s.handleHealth(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestReadyEndpoint(t *testing.T) {
	containerReady := false
	s := New(WithReadiness(func() bool { return containerReady }))

	tests := []struct {
		name      string
		serving   bool
		container bool
		want      int
	}{
		{"not serving", false, true, http.StatusServiceUnavailable},
		{"container initializing", true, false, http.StatusServiceUnavailable},
		{"ready", true, true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.setReady(tt.serving)
			containerReady = tt.container

			w := httptest.NewRecorder()
			s.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestDefaultRootHandler(t *testing.T) {
	s := New(
		WithName("addond-test"),
		WithVersion("v9.9.9"),
		WithHandler(map[string]http.HandlerFunc{
			"/v1/addons": func(w http.ResponseWriter, _ *http.Request) {},
		}))

	w := httptest.NewRecorder()
	s.config.Handlers["/"](w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Name    string   `json:"name"`
		Version string   `json:"version"`
		Routes  []string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "addond-test", resp.Name)
	assert.Equal(t, "v9.9.9", resp.Version)
	assert.Equal(t, []string{"/", "/health", "/metrics", "/ready", "/v1/addons"}, resp.Routes)

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.config.Handlers["/"](w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.config.Handlers["/"](w, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCustomRootHandlerNotOverridden(t *testing.T) {
	called := false
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/": func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		},
	}))

	s.config.Handlers["/"](httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestSystemRouteNotShadowed(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/health": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		},
	}))

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := New()

	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestWithConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Name = "test-server"
	cfg.Port = 9191
	cfg.RateLimit = 500

	s := New(WithConfig(cfg))

	assert.Equal(t, "test-server", s.config.Name)
	assert.Equal(t, ":9191", s.httpServer.Addr)
	assert.EqualValues(t, 500, s.config.RateLimit)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = time.Second

	s := New(WithConfig(cfg), WithReadiness(func() bool { return true }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, time.Second, 5*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/ready", s.Addr()))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timed out")
	}
	assert.False(t, s.isReady())
}

func TestStartListenFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	cfg := NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = taken.Addr().(*net.TCPAddr).Port

	err = New(WithConfig(cfg)).Start(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnavailable))
}

type staticSource []registry.Entry

func (s staticSource) Snapshot() []registry.Entry {
	return s
}

func TestAddonsHandler(t *testing.T) {
	src := staticSource{
		{ID: addon.NewID("core", "1.0.0"), Status: addon.StatusStarted},
		{ID: addon.NewID("db", "2.0.0"), Status: addon.StatusStarted},
		{ID: addon.NewID("web", "1.0.0"), Status: addon.StatusFailed,
			Missing: []addon.ID{addon.NewID("db", "3.0.0")}, Error: "[MISSING_DEPENDENCY] waiting"},
	}
	h := AddonsHandler(src)

	tests := []struct {
		name      string
		query     string
		wantCode  int
		wantNames []string
	}{
		{"all", "", http.StatusOK, []string{"core", "db", "web"}},
		{"by status", "?status=failed", http.StatusOK, []string{"web"}},
		{"by name", "?name=db", http.StatusOK, []string{"db"}},
		{"no match", "?status=STOPPING", http.StatusOK, []string{}},
		{"bad status", "?status=RUNNING", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/v1/addons"+tt.query, nil))

			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantNames == nil {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, string(apperrors.ErrCodeInvalidRequest), resp.Code)
				return
			}

			var resp AddonsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			names := make([]string, 0, len(resp.Addons))
			for _, e := range resp.Addons {
				names = append(names, e.ID.Name)
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, len(tt.wantNames), resp.Count)
		})
	}

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodDelete, "/v1/addons", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("yaml", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/addons?name=web", nil)
		req.Header.Set("Accept", "application/yaml")
		w := httptest.NewRecorder()
		h(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))

		var resp AddonsResponse
		require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Addons, 1)
		assert.Equal(t, addon.StatusFailed, resp.Addons[0].Status)
		assert.Equal(t, "db", resp.Addons[0].Missing[0].Name)
	})
}

func TestAddonsHandlerThroughMiddleware(t *testing.T) {
	s := New(WithHandler(map[string]http.HandlerFunc{
		"/v1/addons": AddonsHandler(staticSource{}),
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/addons", nil)
	req.Header.Set("Accept", "application/vnd.nvidia.addon.v1+json")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1", w.Header().Get("X-API-Version"))
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := []struct {
		code apperrors.ErrorCode
		want int
	}{
		{apperrors.ErrCodeInvalidRequest, http.StatusBadRequest},
		{apperrors.ErrCodeNotFound, http.StatusNotFound},
		{apperrors.ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{apperrors.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{apperrors.ErrCodeUnavailable, http.StatusServiceUnavailable},
		{apperrors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{apperrors.ErrCodeInternal, http.StatusInternalServerError},
		{apperrors.ErrCodeLoadFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromCode(tt.code))
		})
	}
}

func TestRetryableFromCode(t *testing.T) {
	assert.True(t, retryableFromCode(apperrors.ErrCodeTimeout))
	assert.True(t, retryableFromCode(apperrors.ErrCodeRateLimitExceeded))
	assert.True(t, retryableFromCode(apperrors.ErrCodeInternal))
	assert.False(t, retryableFromCode(apperrors.ErrCodeInvalidRequest))
	assert.False(t, retryableFromCode(apperrors.ErrCodeNotFound))
}

func TestMergeDetails(t *testing.T) {
	assert.Nil(t, mergeDetails(nil, nil))
	assert.Nil(t, mergeDetails(map[string]any{}, map[string]any{}))

	got := mergeDetails(map[string]any{"a": 1, "shared": "old"}, map[string]any{"b": 2, "shared": "new"})
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "shared": "new"}, got)
}

func TestWriteError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), contextKeyRequestID, "req-123"))
	w := httptest.NewRecorder()

	WriteError(w, req, http.StatusBadRequest, apperrors.ErrCodeInvalidRequest, "bad request", false, map[string]any{"k": "v"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
	assert.Equal(t, "req-123", resp.RequestID)
	assert.False(t, resp.Retryable)
	assert.Equal(t, "v", resp.Details["k"])
}

func TestWriteErrorFromErr(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		err := apperrors.WrapWithContext(apperrors.ErrCodeUnavailable, "registry unavailable",
			errors.New("locked"), map[string]any{"component": "registry"})
		w := httptest.NewRecorder()

		WriteErrorFromErr(w, httptest.NewRequest(http.MethodGet, "/", nil), err, "fallback", map[string]any{"extra": "yes"})

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "registry unavailable", resp.Message)
		assert.True(t, resp.Retryable)
		assert.Equal(t, "registry", resp.Details["component"])
		assert.Equal(t, "yes", resp.Details["extra"])
		assert.Equal(t, "locked", resp.Details["error"])
	})

	t.Run("plain error", func(t *testing.T) {
		w := httptest.NewRecorder()

		WriteErrorFromErr(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"), "fallback", nil)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "INTERNAL", resp.Code)
		assert.Equal(t, "fallback", resp.Message)
		assert.Equal(t, "boom", resp.Details["error"])
	})
}
