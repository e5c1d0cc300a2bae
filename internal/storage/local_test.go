package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreFolders(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ids, err := store.FindFolders(ctx, "exports")
	require.NoError(t, err)
	assert.Empty(t, ids)

	id, err := store.CreateFolder(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "exports", id)

	ids, err = store.FindFolders(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports"}, ids)
}

func TestLocalStoreRejectsNestedNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.CreateFolder(context.Background(), name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestLocalStoreCreateFileUniqueIDs(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.CreateFolder(ctx, "exports")
	require.NoError(t, err)

	upload := func() string {
		id, err := store.CreateFile(ctx, &FileUpload{
			Name:        "a.txt",
			ParentID:    "exports",
			ContentType: "text/plain",
			Body:        strings.NewReader("contents"),
		})
		require.NoError(t, err)
		return id
	}

	first := upload()
	second := upload()
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "exports/"))
	assert.True(t, strings.HasSuffix(first, "/a.txt"))

	data, err := os.ReadFile(store.Path(first))
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "exports/id/a.txt", objectKey("exports/", "id", "a.txt"))
	assert.Equal(t, "exports/id/a.txt", objectKey("exports", "id", "a.txt"))
}
