package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/duplofs/internal/common"
	"github.com/dmitrijs2005/duplofs/internal/logging"
	"github.com/dmitrijs2005/duplofs/internal/obs/metrics"
	"github.com/dmitrijs2005/duplofs/internal/server/models"
	"github.com/dmitrijs2005/duplofs/internal/server/storage"
)

// ---- fakes ----

type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger          { return n }

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]string
	err    error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]string{}}
}

func (f *fakeUsers) Register(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: empty", common.ErrorValidation)
	}
	if _, ok := f.users[username]; ok {
		return nil, common.ErrDuplicateUsername
	}
	f.nextID++
	f.users[username] = password
	return &models.User{ID: f.nextID, UserName: username}, nil
}

func (f *fakeUsers) Login(_ context.Context, username, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.users[username]; !ok || p != password {
		return nil, common.ErrInvalidCredentials
	}
	return &models.User{ID: 1, UserName: username}, nil
}

type storedObject struct {
	data        []byte
	contentType string
}

type fakeFiles struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	listErr   error
	uploadErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: map[string]storedObject{}}
}

func (f *fakeFiles) Bucket() string { return "duplo-bucket" }
func (f *fakeFiles) Region() string { return "nyc3" }

func (f *fakeFiles) ListFiles(context.Context) iter.Seq2[models.StoredFile, error] {
	return func(yield func(models.StoredFile, error) bool) {
		f.mu.Lock()
		names := make([]string, 0, len(f.objects))
		for k := range f.objects {
			names = append(names, k)
		}
		sizes := make(map[string]int64, len(f.objects))
		for k, o := range f.objects {
			sizes[k] = int64(len(o.data))
		}
		listErr := f.listErr
		f.mu.Unlock()

		sort.Strings(names)
		for _, n := range names {
			if !yield(models.StoredFile{
				Name:    n,
				Size:    sizes[n],
				URL:     "https://duplo-bucket.nyc3.digitaloceanspaces.com/" + storage.EscapeKey(n),
				IsImage: storage.IsImage(n),
			}, nil) {
				return
			}
		}
		if listErr != nil {
			yield(models.StoredFile{}, listErr)
		}
	}
}

func (f *fakeFiles) UploadFile(_ context.Context, name string, body io.Reader, contentType string) error {
	if name == "" {
		return common.ErrEmptyFilename
	}
	if f.uploadErr != nil {
		return f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = storedObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeFiles) DownloadFile(_ context.Context, name string) (*models.FileContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", name, common.ErrorNotFound)
	}
	return &models.FileContent{
		Name:        name,
		Body:        io.NopCloser(bytes.NewReader(o.data)),
		Size:        int64(len(o.data)),
		ContentType: o.contentType,
	}, nil
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

// ---- helpers ----

type testEnv struct {
	srv   *Server
	users *fakeUsers
	files *fakeFiles
	db    *fakePinger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{users: newFakeUsers(), files: newFakeFiles(), db: &fakePinger{}}
	srv, err := NewServer(Options{
		Addr:           "127.0.0.1:0",
		SecretKey:      "test-secret",
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	}, Deps{
		Users:   env.users,
		Files:   env.files,
		DB:      env.db,
		Metrics: metrics.New(),
	}, nopLogger{})
	require.NoError(t, err)
	env.srv = srv
	return env
}

// browser keeps cookies between requests like a user agent would.
type browser struct {
	t       *testing.T
	env     *testEnv
	cookies map[string]string
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, env: e, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	for k, v := range b.cookies {
		req.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	resp, err := b.env.srv.app.Test(req, -1)
	require.NoError(b.t, err)
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Value == "" || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c.Value
	}

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) (*http.Response, string) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postMultipart(path string, build func(w *multipart.Writer)) (*http.Response, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	build(w)
	require.NoError(b.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) login(username, password string) {
	b.t.Helper()
	b.postForm("/register", url.Values{"username": {username}, "password": {password}})
	resp, _ := b.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusFound, resp.StatusCode)
	require.Equal(b.t, "/", resp.Header.Get("Location"))
	require.Contains(b.t, b.cookies, common.SessionCookieName)
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func assertNotice(t *testing.T, body, msg string) {
	t.Helper()
	assert.Contains(t, body, html.EscapeString(msg))
}

// ---- tests ----

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(Options{SecretKey: "x"}, Deps{}, nopLogger{})
	require.Error(t, err)

	_, err = NewServer(Options{}, Deps{Users: newFakeUsers(), Files: newFakeFiles()}, nopLogger{})
	require.Error(t, err)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	b := env.browser(t)

	resp, body := b.get("/livez")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, _ = b.get("/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env.db.err = errors.New("connection refused")
	resp, _ = b.get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body = b.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "duplofs_http_requests_total")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
