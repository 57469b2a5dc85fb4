package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(p string) {
	r.mu.Lock()
	r.paths = append(r.paths, p)
	r.mu.Unlock()
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func newTestServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.json", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/page.json", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nope":`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		if r.Header.Get("Cache-Control") != "no-cache" {
			http.Error(w, "cache header missing", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSequentialOrdering(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	c, err := New(srv.URL, BasePath{})
	require.NoError(t, err)

	raw, err := c.FetchSequential(context.Background(), []string{"/missing.json", "/page.json", "/ok.json", "/never.json"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/ok.json"}`, string(raw))
	assert.Equal(t, []string{"/missing.json", "/page.json", "/ok.json"}, rec.seen())
}

func TestFetchSequentialSkipsInvalidJSON(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	c, err := New(srv.URL, BasePath{})
	require.NoError(t, err)

	raw, err := c.FetchSequential(context.Background(), []string{"/broken.json", "data/good.json"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/data/good.json"}`, string(raw))
}

func TestFetchSequentialAllFail(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	c, err := New(srv.URL, BasePath{})
	require.NoError(t, err)

	_, err = c.FetchSequential(context.Background(), []string{"/missing.json", "/page.json"})
	assert.ErrorIs(t, err, ErrNoResource)
	assert.Len(t, rec.seen(), 2)
}

func TestFetchSequentialEmptyAndDuplicates(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	c, err := New(srv.URL, BasePath{})
	require.NoError(t, err)

	_, err = c.FetchSequential(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoResource)

	_, err = c.FetchSequential(context.Background(), []string{" ", ""})
	assert.ErrorIs(t, err, ErrNoResource)
	assert.Empty(t, rec.seen())

	_, err = c.FetchSequential(context.Background(), []string{"/missing.json", "missing.json", " /missing.json "})
	assert.ErrorIs(t, err, ErrNoResource)
	assert.Equal(t, []string{"/missing.json"}, rec.seen())
}

func TestFetchSequentialCanceled(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	c, err := New(srv.URL, BasePath{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.FetchSequential(ctx, []string{"/ok.json"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.seen())
}

func TestFetchWithBasePath(t *testing.T) {
	rec := &recorder{}
	srv := newTestServer(t, rec)
	base := NewBasePath("magz/")
	c, err := New(srv.URL, base)
	require.NoError(t, err)

	type doc struct {
		Path string `json:"path"`
	}
	got, err := Fetch[doc](context.Background(), c, base.Candidates("data/taxonomy.json"))
	require.NoError(t, err)
	assert.Equal(t, "/magz/data/taxonomy.json", got.Path)
}

func TestNewRejectsRelativeOrigin(t *testing.T) {
	_, err := New("/data", BasePath{})
	assert.Error(t, err)
}
