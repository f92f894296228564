package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// AllowedSchemes is the whitelist of allowed URI schemes
var AllowedSchemes = []string{"https", "http", "s3", "file"}

// SizeUnknown is returned by Size when the backend cannot determine
// the object's length up front
const SizeUnknown int64 = -1

// Storage is the interface for all storage backends
type Storage interface {
	// Get opens the object at the given URI for reading
	Get(ctx context.Context, uri string) (io.ReadCloser, error)

	// Put uploads data to the given URI
	Put(ctx context.Context, uri string, data io.Reader) error

	// Delete removes a file at the given URI
	Delete(ctx context.Context, uri string) error

	// Exists checks if a file exists at the given URI
	Exists(ctx context.Context, uri string) (bool, error)

	// Size returns the object's length in bytes, or SizeUnknown when the
	// backend cannot tell without reading the object
	Size(ctx context.Context, uri string) (int64, error)
}

// StatusError reports a non-OK HTTP response from a remote backend
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d", e.Code)
}

// ParseURI parses a URI and returns scheme and path
func ParseURI(uri string) (scheme string, path string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("URI cannot be empty")
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid URI: %w", err)
	}

	if parsed.Scheme == "" {
		return "", "", fmt.Errorf("URI must have a scheme (e.g., https://, s3://)")
	}

	// For file:// URIs, use the full path
	if parsed.Scheme == "file" {
		return parsed.Scheme, parsed.Path, nil
	}

	// For other URIs (s3://, https://, etc.), combine host and path
	path = parsed.Host
	if parsed.Path != "" {
		path = path + parsed.Path
	}

	return parsed.Scheme, path, nil
}

// IsAllowedScheme checks if a URI scheme is in the whitelist
func IsAllowedScheme(scheme string) bool {
	for _, allowed := range AllowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}
