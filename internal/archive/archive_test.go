package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSavePageWritesSnapshot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a, err := New(root, 1024, zaptest.NewLogger(t))
	require.NoError(t, err)

	fetchedAt := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	path, err := a.SavePage(context.Background(), fetchedAt, 3, []byte("<html>ok</html>"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "2024-01-10", "page-00003.html"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(data))
}

func TestSavePageRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	a, err := New(t.TempDir(), 1024, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = a.SavePage(context.Background(), time.Now(), 1, nil)
	require.Error(t, err)
}

func TestSavePageRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	a, err := New(t.TempDir(), 4, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = a.SavePage(context.Background(), time.Now(), 1, []byte("too large"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds max")
}

func TestSavePageHonorsCancellation(t *testing.T) {
	t.Parallel()

	a, err := New(t.TempDir(), 1024, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.SavePage(ctx, time.Now(), 1, []byte("<html/>"))
	require.Error(t, err)
}
