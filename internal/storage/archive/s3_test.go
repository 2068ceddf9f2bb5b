// internal/storage/archive/s3_test.go
package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/sigfuse/internal/core"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Storage_Key(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"", "file.json", "file.json"},
		{"archive", "file.json", "archive/file.json"},
		{"archive/", "a/b.json", "archive/a/b.json"},
		{"/archive/", "/a//b.json", "archive/a/b.json"},
	}

	for _, tt := range tests {
		s, err := NewS3(S3Config{Bucket: "b", Prefix: tt.prefix})
		require.NoError(t, err)
		got, err := s.key(tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	s, _ := NewS3(S3Config{Bucket: "b"})
	_, err := s.key("../escape")
	assert.Error(t, err)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

// fakeS3 answers path-style PUT, GET and HEAD requests
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/bucket/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3Storage_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(&fakeS3{objects: map[string][]byte{}})
	defer srv.Close()

	s, err := NewS3(S3Config{
		Bucket:    "bucket",
		Endpoint:  srv.URL,
		AccessKey: "key",
		SecretKey: "secret",
		Prefix:    "sigfuse",
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "signals/a.json", []byte(`{"a":1}`)))

	got, err := s.Read(ctx, "signals/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	ok, err := s.Exists(ctx, "signals/a.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "signals/missing.json")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "signals/missing.json")
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
}
