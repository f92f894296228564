package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStorage_Get(t *testing.T) {
	payload := "matroska bytes"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/source.mkv", r.URL.Path)
		w.Write([]byte(payload))
	}))
	defer server.Close()

	storage := NewHTTPStorage()
	ctx := context.Background()

	reader, err := storage.Get(ctx, server.URL+"/source.mkv")
	require.NoError(t, err)
	defer reader.Close()

	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(content))
}

func TestHTTPStorage_Get_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	storage := NewHTTPStorage()
	ctx := context.Background()

	reader, err := storage.Get(ctx, server.URL+"/gone.mkv")
	require.Error(t, err)
	assert.Nil(t, reader)

	// Non-OK responses surface as StatusError so callers can classify them
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestHTTPStorage_Get_RejectsForeignScheme(t *testing.T) {
	storage := NewHTTPStorage()
	ctx := context.Background()

	_, err := storage.Get(ctx, "s3://bucket/source.mkv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only supports http:// and https://")
}

func TestHTTPStorage_ReadOnly(t *testing.T) {
	storage := NewHTTPStorage()
	ctx := context.Background()

	err := storage.Put(ctx, "https://example.com/source.mkv", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")

	err = storage.Delete(ctx, "https://example.com/source.mkv")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}

func TestHTTPStorage_Exists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HEAD", r.Method)
		if r.URL.Path == "/present.mkv" {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	storage := NewHTTPStorage()
	ctx := context.Background()

	exists, err := storage.Exists(ctx, server.URL+"/present.mkv")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = storage.Exists(ctx, server.URL+"/absent.mkv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestHTTPStorage_Size(t *testing.T) {
	payload := []byte("0123456789")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sized.mkv":
			w.Header().Set("Content-Length", "10")
			w.WriteHeader(http.StatusOK)
			if r.Method == "GET" {
				w.Write(payload)
			}
		case "/unsized.mkv":
			// No Content-Length header on HEAD
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	storage := NewHTTPStorage()
	ctx := context.Background()

	size, err := storage.Size(ctx, server.URL+"/sized.mkv")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	size, err = storage.Size(ctx, server.URL+"/unsized.mkv")
	require.NoError(t, err)
	assert.Equal(t, SizeUnknown, size)

	_, err = storage.Size(ctx, server.URL+"/missing.mkv")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}
