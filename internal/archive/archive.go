// Package archive saves raw registry page snapshots to local disk so a
// failed parse can be replayed offline without refetching.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// FileSystemArchive writes one HTML file per fetched page, grouped by
// crawl date.
type FileSystemArchive struct {
	root     string
	maxBytes int64
	logger   *zap.Logger
}

// New returns an archive rooted at dir.
func New(root string, maxBytes int64, logger *zap.Logger) (*FileSystemArchive, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", root, err)
	}
	return &FileSystemArchive{
		root:     root,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// SavePage writes a page snapshot and returns its path.
func (a *FileSystemArchive) SavePage(ctx context.Context, fetchedAt time.Time, page int, body []byte) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty page body")
	}
	if a.maxBytes > 0 && int64(len(body)) > a.maxBytes {
		return "", fmt.Errorf("page size %d exceeds max %d", len(body), a.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	target := filepath.Join(
		a.root,
		fetchedAt.UTC().Format("2006-01-02"),
		fmt.Sprintf("page-%05d.html", page),
	)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", fmt.Errorf("creating archive dir for %s: %w", target, err)
	}
	if err := os.WriteFile(target, body, 0o600); err != nil {
		return "", fmt.Errorf("writing page to %s: %w", target, err)
	}
	return target, nil
}
