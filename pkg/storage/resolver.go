package storage

import (
	"context"
	"fmt"
)

// Resolver routes URIs to the storage backend that can serve them
type Resolver struct {
	local *LocalStorage
	http  *HTTPStorage
	s3    *S3Storage
}

// NewResolver creates a resolver with every backend that can be initialized.
// S3 is optional: when the AWS credential chain is not available, s3:// URIs
// are rejected at resolution time instead of at startup.
func NewResolver(ctx context.Context) *Resolver {
	r := &Resolver{
		local: NewLocalStorage(),
		http:  NewHTTPStorage(),
	}

	if s3Storage, err := NewS3Storage(ctx); err == nil {
		r.s3 = s3Storage
	}

	return r
}

// NewResolverWithBackends creates a resolver from explicit backends.
// Useful for testing.
func NewResolverWithBackends(local *LocalStorage, http *HTTPStorage, s3 *S3Storage) *Resolver {
	return &Resolver{local: local, http: http, s3: s3}
}

// ForURI returns the storage backend for a URI's scheme
func (r *Resolver) ForURI(uri string) (Storage, error) {
	scheme, _, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch scheme {
	case "file":
		return r.local, nil
	case "http", "https":
		return r.http, nil
	case "s3":
		if r.s3 == nil {
			return nil, fmt.Errorf("S3 storage not initialized (AWS credentials may be missing)")
		}
		return r.s3, nil
	default:
		return nil, fmt.Errorf("unsupported URI scheme: %s", scheme)
	}
}
