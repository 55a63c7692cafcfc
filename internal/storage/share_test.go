package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/sharegate/internal/events"
	"github.com/TheMichaelB/sharegate/internal/storage"
)

func writeFile(t *testing.T, s storage.Share, p string, data []byte) {
	t.Helper()
	w, err := s.OpenWrite(context.Background(), p)
	require.NoError(t, err)
	_, err = io.Copy(w, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readFile(t *testing.T, s storage.Share, p string) []byte {
	t.Helper()
	r, err := s.OpenRead(context.Background(), p)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

// testShareContract exercises the behavior every Share must provide.
func testShareContract(t *testing.T, s storage.Share) {
	ctx := context.Background()

	t.Run("mkdir and stat", func(t *testing.T) {
		require.NoError(t, s.Mkdir(ctx, "/repo"))

		info, err := s.Stat(ctx, "/repo")
		require.NoError(t, err)
		assert.True(t, info.IsDir)
		assert.Equal(t, "repo", info.Name)

		err = s.Mkdir(ctx, "/repo")
		assert.ErrorIs(t, err, os.ErrExist)
	})

	t.Run("mkdir without parent", func(t *testing.T) {
		err := s.Mkdir(ctx, "/absent/child")
		assert.Error(t, err)
	})

	t.Run("mkdir all", func(t *testing.T) {
		require.NoError(t, s.MkdirAll(ctx, "/deep/a/b"))
		exists, err := s.Exists(ctx, "/deep/a/b")
		require.NoError(t, err)
		assert.True(t, exists)
		require.NoError(t, s.MkdirAll(ctx, "/deep/a/b"))
	})

	t.Run("write read overwrite", func(t *testing.T) {
		writeFile(t, s, "/repo/file", []byte("first"))
		assert.Equal(t, "first", string(readFile(t, s, "/repo/file")))

		writeFile(t, s, "/repo/file", []byte("2nd"))
		assert.Equal(t, "2nd", string(readFile(t, s, "/repo/file")))

		info, err := s.Stat(ctx, "/repo/file")
		require.NoError(t, err)
		assert.True(t, info.IsRegular())
		assert.Equal(t, int64(3), info.Size)
	})

	t.Run("write without parent", func(t *testing.T) {
		_, err := s.OpenWrite(ctx, "/nowhere/file")
		assert.Error(t, err)
	})

	t.Run("missing entries", func(t *testing.T) {
		_, err := s.Stat(ctx, "/repo/missing")
		assert.ErrorIs(t, err, os.ErrNotExist)

		exists, err := s.Exists(ctx, "/repo/missing")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = s.OpenRead(ctx, "/repo/missing")
		assert.ErrorIs(t, err, os.ErrNotExist)

		assert.ErrorIs(t, s.Delete(ctx, "/repo/missing"), os.ErrNotExist)
	})

	t.Run("list direct children", func(t *testing.T) {
		require.NoError(t, s.Mkdir(ctx, "/repo/sub"))
		writeFile(t, s, "/repo/sub/nested", []byte("n"))

		entries, err := s.ListDir(ctx, "/repo")
		require.NoError(t, err)

		var names []string
		for _, e := range entries {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		assert.Equal(t, []string{"file", "sub"}, names)

		_, err = s.ListDir(ctx, "/repo/none")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("rename replaces destination", func(t *testing.T) {
		writeFile(t, s, "/repo/a", []byte("A"))
		writeFile(t, s, "/repo/b", []byte("B"))

		require.NoError(t, s.Rename(ctx, "/repo/a", "/repo/b"))
		assert.Equal(t, "A", string(readFile(t, s, "/repo/b")))

		exists, err := s.Exists(ctx, "/repo/a")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("rename missing source", func(t *testing.T) {
		assert.Error(t, s.Rename(ctx, "/repo/ghost", "/repo/b"))
	})

	t.Run("delete", func(t *testing.T) {
		assert.Error(t, s.Delete(ctx, "/repo/sub"), "non-empty directory")
		require.NoError(t, s.Delete(ctx, "/repo/sub/nested"))
		require.NoError(t, s.Delete(ctx, "/repo/sub"))

		exists, err := s.Exists(ctx, "/repo/sub")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	assert.NoError(t, s.Close())
}

func TestLocalStoreContract(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), events.Discard())
	require.NoError(t, err)
	testShareContract(t, store)
}

func TestMockStoreContract(t *testing.T) {
	testShareContract(t, storage.NewMockStore())
}

func TestClean(t *testing.T) {
	assert.Equal(t, "/", storage.Clean(""))
	assert.Equal(t, "/a/b", storage.Clean("a//b/"))
	assert.Equal(t, "/b", storage.Clean("/a/../../b"))
}
