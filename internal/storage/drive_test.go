package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeDrive answers the handful of Drive v3 calls the store makes.
type fakeDrive struct {
	queries   []string
	folders   []string
	uploaded  map[string]string
	parents   map[string][]string
	failLists bool
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		if f.failLists {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 403, "message": "insufficient permissions"}})
			return
		}
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		files := make([]map[string]string, 0, len(f.folders))
		for _, id := range f.folders {
			files = append(files, map[string]string{"id": id})
		}
		json.NewEncoder(w).Encode(map[string]any{"files": files})

	case r.URL.Query().Get("uploadType") != "":
		id := f.readUpload(r)
		json.NewEncoder(w).Encode(map[string]string{"id": id})

	default:
		var meta struct {
			Name     string `json:"name"`
			MimeType string `json:"mimeType"`
		}
		json.NewDecoder(r.Body).Decode(&meta)
		id := "folder-" + meta.Name
		f.folders = append(f.folders, id)
		json.NewEncoder(w).Encode(map[string]string{"id": id})
	}
}

func (f *fakeDrive) readUpload(r *http.Request) string {
	_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	reader := multipart.NewReader(r.Body, params["boundary"])

	var meta struct {
		Name    string   `json:"name"`
		Parents []string `json:"parents"`
	}
	part, err := reader.NextPart()
	if err != nil {
		return ""
	}
	json.NewDecoder(part).Decode(&meta)

	part, err = reader.NextPart()
	if err != nil {
		return ""
	}
	data, _ := io.ReadAll(part)

	id := "file-" + meta.Name
	f.uploaded[id] = string(data)
	f.parents[id] = meta.Parents
	return id
}

// resumableDrive answers a resumable media upload: the session start, then
// one request per chunk until the final chunk carries the total size.
type resumableDrive struct {
	mu       sync.Mutex
	name     string
	data     []byte
	ranges   []string
	sessions int
}

func (f *resumableDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != "/upload-session" {
		if r.URL.Query().Get("uploadType") != "resumable" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var meta struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&meta)
		f.name = meta.Name
		f.sessions++
		w.Header().Set("Location", "http://"+r.Host+"/upload-session?upload_id=s1")
		w.WriteHeader(http.StatusOK)
		return
	}

	contentRange := r.Header.Get("Content-Range")
	f.ranges = append(f.ranges, contentRange)
	chunk, _ := io.ReadAll(r.Body)
	f.data = append(f.data, chunk...)

	// "bytes first-last/total", total is "*" until the final chunk
	_, total, _ := strings.Cut(strings.TrimPrefix(contentRange, "bytes "), "/")
	if total == "*" {
		w.Header().Set("X-Http-Status-Code-Override", "308")
		w.Header().Set("Range", "bytes=0-"+strconv.Itoa(len(f.data)-1))
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": "big"})
}

func newTestDriveStore(t *testing.T, fake *fakeDrive) *DriveStore {
	t.Helper()
	return newTestDriveStoreWithHandler(t, fake, 0)
}

func newTestDriveStoreWithHandler(t *testing.T, handler http.Handler, chunkSize int) *DriveStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store, err := NewDriveStoreWithOptions(context.Background(), chunkSize,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store
}

func TestDriveStoreFindFoldersEscapesName(t *testing.T) {
	fake := &fakeDrive{folders: []string{"f1", "f2"}}
	store := newTestDriveStore(t, fake)

	ids, err := store.FindFolders(context.Background(), `it's`)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids)

	require.Len(t, fake.queries, 1)
	assert.Equal(t, `name='it\'s' and mimeType='application/vnd.google-apps.folder' and trashed=false`, fake.queries[0])
}

func TestDriveStoreFindFoldersError(t *testing.T) {
	store := newTestDriveStore(t, &fakeDrive{failLists: true})

	_, err := store.FindFolders(context.Background(), "exports")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list folders")
}

func TestDriveStoreCreateFolder(t *testing.T) {
	fake := &fakeDrive{}
	store := newTestDriveStore(t, fake)

	id, err := store.CreateFolder(context.Background(), "gpt_threads")
	require.NoError(t, err)
	assert.Equal(t, "folder-gpt_threads", id)
}

func TestDriveStoreCreateFile(t *testing.T) {
	fake := &fakeDrive{uploaded: map[string]string{}, parents: map[string][]string{}}
	store := newTestDriveStore(t, fake)

	id, err := store.CreateFile(context.Background(), &FileUpload{
		Name:        "a.txt",
		ParentID:    "folder-1",
		ContentType: "text/plain",
		Body:        strings.NewReader("hello drive"),
	})
	require.NoError(t, err)
	assert.Equal(t, "file-a.txt", id)
	assert.Equal(t, "hello drive", fake.uploaded[id])
	assert.Equal(t, []string{"folder-1"}, fake.parents[id])
}

func TestDriveStoreCreateFileResumable(t *testing.T) {
	const chunkSize = 256 * 1024
	fake := &resumableDrive{}
	store := newTestDriveStoreWithHandler(t, fake, chunkSize)

	body := make([]byte, 700*1024)
	for i := range body {
		body[i] = byte(i % 251)
	}

	id, err := store.CreateFile(context.Background(), &FileUpload{
		Name:        "big.bin",
		ParentID:    "folder-1",
		ContentType: "application/octet-stream",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, "big", id)

	assert.Equal(t, 1, fake.sessions)
	assert.Equal(t, "big.bin", fake.name)
	assert.Equal(t, []string{
		"bytes 0-262143/*",
		"bytes 262144-524287/*",
		"bytes 524288-716799/716800",
	}, fake.ranges)
	require.Len(t, fake.data, len(body))
	assert.True(t, bytes.Equal(body, fake.data), "reassembled upload differs from the source")
}
