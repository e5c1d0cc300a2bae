package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "uploads"

// fakeS3 is a path-style S3 endpoint holding objects in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+testBucket), "/")

	switch {
	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		var contents strings.Builder
		count := 0
		for k, v := range f.objects {
			if strings.HasPrefix(k, prefix) {
				fmt.Fprintf(&contents, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(v))
				count++
			}
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><MaxKeys>1</MaxKeys><IsTruncated>false</IsTruncated>%s</ListBucketResult>`,
			testBucket, prefix, count, contents.String())

	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = string(data)
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newTestR2Store(t *testing.T) (*R2Store, *fakeS3) {
	t.Helper()
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	fake := &fakeS3{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewR2Store(context.Background(), "id", "secret", testBucket, srv.URL, 0)
	require.NoError(t, err)
	return store, fake
}

func TestR2StoreFolders(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestR2Store(t)

	ids, err := store.FindFolders(ctx, "exports")
	require.NoError(t, err)
	assert.Empty(t, ids)

	id, err := store.CreateFolder(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, "exports", id)
	assert.Contains(t, fake.objects, "exports/.folder")

	ids, err = store.FindFolders(ctx, "exports")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports"}, ids)
}

func TestR2StoreFindsUnmarkedPrefix(t *testing.T) {
	store, fake := newTestR2Store(t)
	fake.objects["legacy/report.csv"] = "a,b"

	ids, err := store.FindFolders(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, ids)
}

func TestR2StoreCreateFile(t *testing.T) {
	store, fake := newTestR2Store(t)

	id, err := store.CreateFile(context.Background(), &FileUpload{
		Name:        "a.txt",
		ParentID:    "exports",
		ContentType: "text/plain",
		Body:        strings.NewReader("hello r2"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "exports/"))
	assert.True(t, strings.HasSuffix(id, "/a.txt"))
	assert.Equal(t, "hello r2", fake.objects[id])
	assert.Equal(t, "text/plain", fake.types[id])
}
