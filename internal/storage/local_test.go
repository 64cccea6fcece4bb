package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndGet(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "handbook.pdf", strings.NewReader("content"), 7))

	rc, err := store.Get(ctx, "handbook.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestLocalStore_StripsPathComponents(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// 带路径的key不允许逃出存储目录
	require.NoError(t, store.Put(ctx, "../../etc/passwd.txt", strings.NewReader("x"), 1))

	rc, err := store.Get(ctx, "passwd.txt")
	require.NoError(t, err)
	rc.Close()
}

func TestLocalStore_Ready(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.True(t, store.Ready())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeFor("a.pdf"))
	assert.Equal(t, "text/plain", ContentTypeFor("b.TXT"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("c.bin"))
}
