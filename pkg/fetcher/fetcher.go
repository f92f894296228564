// Package fetcher stages remote media into local files for processing
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vddownco/video-downloader-hls/pkg/storage"
)

// chunkSize is the read buffer used when streaming a download to disk
const chunkSize = 32 * 1024

// DefaultHeadTimeout bounds the size probe that precedes a download
const DefaultHeadTimeout = 10 * time.Second

// Kind classifies a fetch failure for diagnostics
type Kind int

const (
	// KindNetwork covers transport failures: refused connections,
	// resets, timeouts
	KindNetwork Kind = iota

	// KindStatus covers non-OK responses from the remote
	KindStatus

	// KindLocalIO covers staging file creation and write failures
	KindLocalIO
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network failure"
	case KindStatus:
		return "bad response status"
	case KindLocalIO:
		return "local I/O failure"
	default:
		return "unknown failure"
	}
}

// FetchError reports a failed download along with its failure kind
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ProgressFunc receives the running byte count of a download. total is
// storage.SizeUnknown when the remote does not advertise a length.
type ProgressFunc func(done, total int64)

// Fetcher streams media from a storage backend to local staging files
type Fetcher struct {
	resolver    *storage.Resolver
	headTimeout time.Duration
}

// FetcherOption is a functional option for Fetcher
type FetcherOption func(*Fetcher)

// WithHeadTimeout sets the timeout for the pre-download size probe
func WithHeadTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.headTimeout = d
		}
	}
}

// NewFetcher creates a fetcher over the given storage resolver
func NewFetcher(resolver *storage.Resolver, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		resolver:    resolver,
		headTimeout: DefaultHeadTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch streams the resource at sourceURL into destPath, calling onProgress
// after each chunk. A failed download removes the partial file best-effort
// and returns a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destPath string, onProgress ProgressFunc) error {
	backend, err := f.resolver.ForURI(sourceURL)
	if err != nil {
		return &FetchError{Kind: KindNetwork, URL: sourceURL, Err: err}
	}

	total := f.probeSize(ctx, backend, sourceURL)

	reader, err := backend.Get(ctx, sourceURL)
	if err != nil {
		return &FetchError{Kind: classifyRemote(err), URL: sourceURL, Err: err}
	}
	defer reader.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return &FetchError{Kind: KindLocalIO, URL: sourceURL, Err: err}
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return &FetchError{Kind: KindLocalIO, URL: sourceURL, Err: err}
	}

	copyErr := f.copyChunks(dest, reader, sourceURL, total, onProgress)
	closeErr := dest.Close()

	if copyErr != nil {
		os.Remove(destPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(destPath)
		return &FetchError{Kind: KindLocalIO, URL: sourceURL, Err: closeErr}
	}

	return nil
}

// probeSize asks the backend for the resource length. An unknown or
// unprobeable length does not fail the fetch; the download just proceeds
// without percentage progress.
func (f *Fetcher) probeSize(ctx context.Context, backend storage.Storage, uri string) int64 {
	probeCtx, cancel := context.WithTimeout(ctx, f.headTimeout)
	defer cancel()

	size, err := backend.Size(probeCtx, uri)
	if err != nil {
		return storage.SizeUnknown
	}
	return size
}

// copyChunks streams src to dst in fixed-size chunks. Read-side errors are
// classified as the source failing, write-side errors as local I/O.
func (f *Fetcher) copyChunks(dst io.Writer, src io.Reader, sourceURL string, total int64, onProgress ProgressFunc) error {
	buf := make([]byte, chunkSize)
	var done int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return &FetchError{Kind: KindLocalIO, URL: sourceURL, Err: writeErr}
			}
			done += int64(n)
			if onProgress != nil {
				onProgress(done, total)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return &FetchError{Kind: classifyRemote(readErr), URL: sourceURL, Err: readErr}
		}
	}
}

func classifyRemote(err error) Kind {
	var statusErr *storage.StatusError
	if errors.As(err, &statusErr) {
		return KindStatus
	}
	return KindNetwork
}
