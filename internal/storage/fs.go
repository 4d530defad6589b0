package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reunion/pkg/platform/sentinel"
)

// FileStore keeps objects on the local filesystem under a fixed root.
// Suitable for single-node deployments and the sweeper binary; an external
// object store (S3, R2) replaces it behind the same interface when the
// portal runs clustered.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) Put(_ context.Context, data []byte, path string, contentType string, meta Metadata) (Ref, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return "", fmt.Errorf("put %s: %v: %w", path, err, sentinel.ErrUnavailable)
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", fmt.Errorf("put %s: %v: %w", path, err, sentinel.ErrUnavailable)
	}
	if err := s.writeSidecar(full, contentType, meta); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("put %s: %v: %w", path, err, sentinel.ErrUnavailable)
	}
	return Ref(path), nil
}

func (s *FileStore) SignedURL(_ context.Context, ref Ref, _ time.Duration) (string, error) {
	full, err := s.resolve(string(ref))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("sign %s: %w", ref, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("sign %s: %v: %w", ref, err, sentinel.ErrUnavailable)
	}
	// Local files need no signing; the TTL is enforced by the handle layer.
	return "file://" + full, nil
}

func (s *FileStore) Delete(_ context.Context, ref Ref) error {
	full, err := s.resolve(string(ref))
	if err != nil {
		return err
	}
	for _, target := range []string{full, full + sidecarSuffix} {
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete %s: %v: %w", ref, err, sentinel.ErrUnavailable)
		}
	}
	return nil
}

const sidecarSuffix = ".meta.json"

type sidecar struct {
	ContentType string   `json:"content_type"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

func (s *FileStore) writeSidecar(full, contentType string, meta Metadata) error {
	payload, err := json.Marshal(sidecar{ContentType: contentType, Metadata: meta})
	if err != nil {
		return err
	}
	return os.WriteFile(full+sidecarSuffix, payload, 0o600)
}

// resolve maps a logical path inside the root, rejecting traversal.
func (s *FileStore) resolve(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root: %w", path, sentinel.ErrUnavailable)
	}
	return full, nil
}
