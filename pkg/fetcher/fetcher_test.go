package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vddownco/video-downloader-hls/pkg/storage"
)

type progressRecord struct {
	done  int64
	total int64
}

func newTestFetcher() *Fetcher {
	resolver := storage.NewResolverWithBackends(storage.NewLocalStorage(), storage.NewHTTPStorage(), nil)
	return NewFetcher(resolver)
}

func TestFetchKnownLength(t *testing.T) {
	payload := []byte("0123456789abcdefghij")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(payload)
		}
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "job.mkv")

	var records []progressRecord
	onProgress := func(done, total int64) {
		records = append(records, progressRecord{done, total})
	}

	f := newTestFetcher()
	err := f.Fetch(context.Background(), server.URL+"/video.mkv", destPath, onProgress)
	require.NoError(t, err)

	content, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Equal(t, int64(len(payload)), rec.total)
	}
	last := records[len(records)-1]
	assert.Equal(t, int64(len(payload)), last.done)
}

func TestFetchUnknownLength(t *testing.T) {
	payload := []byte("stream without a length header")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			// Flush before writing so the response is chunked and
			// carries no Content-Length
			w.(http.Flusher).Flush()
			w.Write(payload)
		}
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "job.mkv")

	var records []progressRecord
	onProgress := func(done, total int64) {
		records = append(records, progressRecord{done, total})
	}

	f := newTestFetcher()
	err := f.Fetch(context.Background(), server.URL+"/video.mkv", destPath, onProgress)
	require.NoError(t, err)

	content, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	require.NotEmpty(t, records)
	for _, rec := range records {
		assert.Equal(t, storage.SizeUnknown, rec.total)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "job.mkv")

	f := newTestFetcher()
	err := f.Fetch(context.Background(), server.URL+"/missing.mkv", destPath, nil)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindStatus, fetchErr.Kind)

	var statusErr *storage.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	destPath := filepath.Join(t.TempDir(), "job.mkv")

	f := newTestFetcher()
	err := f.Fetch(context.Background(), url+"/video.mkv", destPath, nil)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchTruncatedRemovesPartialFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Declare more bytes than we send so the client sees the
		// connection die mid-body
		w.Header().Set("Content-Length", "1048576")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write([]byte("short"))
		}
	}))
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "job.mkv")

	f := newTestFetcher()
	err := f.Fetch(context.Background(), server.URL+"/video.mkv", destPath, nil)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)

	_, statErr := os.Stat(destPath)
	assert.True(t, os.IsNotExist(statErr), "partial file should be removed")
}

func TestFetchLocalFile(t *testing.T) {
	payload := []byte("local media bytes")
	srcPath := filepath.Join(t.TempDir(), "source.mkv")
	require.NoError(t, os.WriteFile(srcPath, payload, 0644))

	// Destination in a directory that does not exist yet
	destPath := filepath.Join(t.TempDir(), "staging", "job.mkv")

	var records []progressRecord
	onProgress := func(done, total int64) {
		records = append(records, progressRecord{done, total})
	}

	f := newTestFetcher()
	err := f.Fetch(context.Background(), "file://"+srcPath, destPath, onProgress)
	require.NoError(t, err)

	content, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, payload, content)

	require.NotEmpty(t, records)
	last := records[len(records)-1]
	assert.Equal(t, int64(len(payload)), last.done)
	assert.Equal(t, int64(len(payload)), last.total)
}

func TestFetchUnsupportedScheme(t *testing.T) {
	f := newTestFetcher()
	err := f.Fetch(context.Background(), "ftp://example.com/video.mkv", filepath.Join(t.TempDir(), "job.mkv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URI scheme")
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &FetchError{Kind: KindNetwork, URL: "https://example.com/v.mkv", Err: inner}
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "network failure")
}
