package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "127.0.0.1:8080"},
		{"garbage", "127.0.0.1:8080"},
		{":9090", "127.0.0.1:9090"},
		{"0.0.0.0:9090", "127.0.0.1:9090"},
		{"[::]:9090", "127.0.0.1:9090"},
		{"10.0.0.5:8080", "10.0.0.5:8080"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddr(tt.raw))
		})
	}
}

func TestFetchHealth(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"healthy", http.StatusOK, `{"status":"ok","time":"2026-01-01T00:00:00Z"}`, ""},
		{"bad status", http.StatusServiceUnavailable, `{"status":"ok"}`, "unexpected status 503"},
		{"not ok", http.StatusOK, `{"status":"degraded"}`, `status "degraded"`},
		{"not json", http.StatusOK, `<html>`, "decoding health response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := fetchHealth(context.Background(), srv.Client(), srv.URL+"/api/v1/health")

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")

	assert.Equal(t, 0, check(addr))
	srv.Close()
	assert.Equal(t, 1, check(addr))
}
