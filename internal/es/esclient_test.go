package es

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	}))
	defer srv.Close()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(context.Background(), Config{URL: srv.URL}, l)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient(context.Background(), Config{URL: srv.URL}, l)
	assert.Error(t, err)
}
