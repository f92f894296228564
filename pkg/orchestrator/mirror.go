package orchestrator

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vddownco/video-downloader-hls/pkg/storage"
)

// Mirror uploads completed job output to a remote storage location,
// one object per playlist or segment file.
type Mirror struct {
	resolver *storage.Resolver
	baseURI  string
}

// NewMirror creates a mirror rooted at baseURI, e.g. "s3://bucket/vods"
func NewMirror(resolver *storage.Resolver, baseURI string) *Mirror {
	return &Mirror{
		resolver: resolver,
		baseURI:  strings.TrimSuffix(baseURI, "/"),
	}
}

// MirrorDir uploads every file under dir to <baseURI>/<token>/<relative path>
func (m *Mirror) MirrorDir(ctx context.Context, token, dir string) error {
	backend, err := m.resolver.ForURI(m.baseURI)
	if err != nil {
		return fmt.Errorf("mirror destination: %w", err)
	}

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		return m.uploadFile(ctx, backend, path, token+"/"+filepath.ToSlash(rel))
	})
}

// uploadFile pushes one local file to its mirrored location
func (m *Mirror) uploadFile(ctx context.Context, backend storage.Storage, localPath, relName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	destURI := m.baseURI + "/" + relName
	if err := backend.Put(ctx, destURI, file); err != nil {
		return fmt.Errorf("failed to upload to %s: %w", destURI, err)
	}

	return nil
}
