package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "travi_content/internal/adapters/http_server"
	"travi_content/internal/adapters/uploads"
	"travi_content/internal/app"
	"travi_content/internal/domain"
	"travi_content/internal/ratelimit"
	"travi_content/internal/storage/flatfile"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type adminEnv struct {
	srv     *httptest.Server
	dataDir string
}

func newAdmin(t *testing.T, ids app.IDGenerator, opts httpserver.Options) adminEnv {
	t.Helper()
	dataDir := t.TempDir()
	store, err := flatfile.New(dataDir)
	require.NoError(t, err)
	require.NoError(t, store.EnsureDefaults(context.Background(), domain.Resources))

	up, err := uploads.New(t.TempDir(), "/uploads", 256)
	require.NoError(t, err)

	s := httpserver.New(opts)
	s.MountAdmin(&httpserver.AdminHandlers{
		Content: app.NewContentService(store, ids, true),
		Uploads: up,
	})
	srv := httptest.NewServer(s.Mux())
	t.Cleanup(srv.Close)
	return adminEnv{srv: srv, dataDir: dataDir}
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAdmin_GuideLifecycle(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	base := env.srv.URL + "/api/guides"

	code, body := do(t, http.MethodPost, base, `{"id":7,"title":"Dubai in 3 days","meta":{"tags":["a"]},"published":false}`)
	require.Equal(t, http.StatusCreated, code, body)
	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	id := fmt.Sprintf("%.0f", created["id"].(float64))
	assert.NotEqual(t, "7", id, "client id is overwritten")

	code, body = do(t, http.MethodGet, base+"/"+id, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%s,"title":"Dubai in 3 days","meta":{"tags":["a"]},"published":false}`, id), body)

	code, body = do(t, http.MethodPut, base+"/"+id, `{"id":1,"published":true,"meta":{"author":"x"}}`)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%s,"title":"Dubai in 3 days","meta":{"author":"x"},"published":true}`, id), body)

	for i := 0; i < 2; i++ {
		code, body = do(t, http.MethodDelete, base+"/"+id, "")
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"success":true}`, body)
	}

	code, body = do(t, http.MethodGet, base+"/"+id, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.JSONEq(t, `{"error":"Not found"}`, body)

	code, body = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, body)
}

func TestAdmin_NotFoundCases(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	for _, path := range []string{"/api/news/123", "/api/news/abc", "/api/pages/home", "/api/categories/beach"} {
		code, body := do(t, http.MethodGet, env.srv.URL+path, "")
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.JSONEq(t, `{"error":"Not found"}`, body, path)
	}
	code, _ := do(t, http.MethodPut, env.srv.URL+"/api/news/123", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAdmin_SingletonRoundTrip(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	doc := `{"siteName":"Travi","contact":{"email":"hi@travi.world"},"price":12.50,"links":["<a>"]}`

	code, body := do(t, http.MethodPut, env.srv.URL+"/api/settings", doc)
	require.Equal(t, http.StatusOK, code, body)
	assert.JSONEq(t, doc, body)

	code, body = do(t, http.MethodGet, env.srv.URL+"/api/settings", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, doc, body)
	assert.Contains(t, body, "12.50", "numbers are kept as written")

	// a replace drops keys absent from the new body
	_, _ = do(t, http.MethodPut, env.srv.URL+"/api/settings", `{"siteName":"Other"}`)
	_, body = do(t, http.MethodGet, env.srv.URL+"/api/settings", "")
	assert.JSONEq(t, `{"siteName":"Other"}`, body)

	code, body = do(t, http.MethodPut, env.srv.URL+"/api/navigation", `[{"label":"Home","href":"/"}]`)
	assert.Equal(t, http.StatusOK, code)
	_, body = do(t, http.MethodGet, env.srv.URL+"/api/navigation", "")
	assert.JSONEq(t, `[{"label":"Home","href":"/"}]`, body)
}

func TestAdmin_Dictionaries(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})

	code, body := do(t, http.MethodPut, env.srv.URL+"/api/pages/about-us", `{"title":"About","blocks":[]}`)
	require.Equal(t, http.StatusOK, code, body)
	_, body = do(t, http.MethodGet, env.srv.URL+"/api/pages/about-us", "")
	assert.JSONEq(t, `{"title":"About","blocks":[]}`, body)

	_, _ = do(t, http.MethodPut, env.srv.URL+"/api/categories/beach", `["Dubai","Goa"]`)
	_, body = do(t, http.MethodGet, env.srv.URL+"/api/categories", "")
	assert.JSONEq(t, `{"beach":["Dubai","Goa"]}`, body)
}

func TestAdmin_InvalidBody(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/guides", `{"title":`},
		{http.MethodPost, "/api/guides", `[1,2]`},
		{http.MethodPut, "/api/settings", `{} {}`},
	} {
		code, body := do(t, tc.method, env.srv.URL+tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, code, tc.body)
		assert.JSONEq(t, `{"error":"Invalid JSON body"}`, body, tc.body)
	}
}

func TestAdmin_UnreadableDocumentIs500(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "news.json"), []byte("{oops"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(env.dataDir, "hero.json")))

	for _, path := range []string{"/api/news", "/api/news/1", "/api/hero"} {
		code, body := do(t, http.MethodGet, env.srv.URL+path, "")
		assert.Equal(t, http.StatusInternalServerError, code, path)
		assert.JSONEq(t, `{"error":"Internal Server Error"}`, body, path)
	}
}

func TestAdmin_ClockIDsCollideWithinOneMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	env := newAdmin(t, app.ClockIDs{Now: func() time.Time { return fixed }}, httpserver.Options{})

	_, a := do(t, http.MethodPost, env.srv.URL+"/api/news", `{"title":"a"}`)
	_, b := do(t, http.MethodPost, env.srv.URL+"/api/news", `{"title":"b"}`)
	assert.JSONEq(t, `{"id":1700000000000,"title":"a"}`, a)
	assert.JSONEq(t, `{"id":1700000000000,"title":"b"}`, b)

	// lookups return the first match
	_, got := do(t, http.MethodGet, env.srv.URL+"/api/news/1700000000000", "")
	assert.JSONEq(t, a, got)
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUpload(t *testing.T, url string, body io.Reader, ctype string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, ctype, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestAdmin_Upload(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{})
	url := env.srv.URL + "/api/upload"

	body, ctype := multipartBody(t, "file", "hero.png", pngBytes)
	code, resp := postUpload(t, url, body, ctype)
	require.Equal(t, http.StatusOK, code, resp)
	var up uploads.Upload
	require.NoError(t, json.Unmarshal([]byte(resp), &up))
	assert.Regexp(t, `^/uploads/\d+-[0-9a-z]{10}\.png$`, up.URL)

	getResp, err := http.Get(env.srv.URL + up.URL)
	require.NoError(t, err)
	served, _ := io.ReadAll(getResp.Body)
	getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, pngBytes, served)

	t.Run("too large", func(t *testing.T) {
		body, ctype := multipartBody(t, "file", "big.png", append(pngBytes, bytes.Repeat([]byte{1}, 512)...))
		code, resp := postUpload(t, url, body, ctype)
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)
		assert.JSONEq(t, `{"error":"File too large"}`, resp)
	})
	t.Run("not an image", func(t *testing.T) {
		body, ctype := multipartBody(t, "file", "notes.png", []byte("plain text"))
		code, _ := postUpload(t, url, body, ctype)
		assert.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("no file field", func(t *testing.T) {
		body, ctype := multipartBody(t, "avatar", "a.png", pngBytes)
		code, resp := postUpload(t, url, body, ctype)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.JSONEq(t, `{"error":"No file uploaded"}`, resp)
	})
	t.Run("not multipart", func(t *testing.T) {
		code, _ := postUpload(t, url, bytes.NewReader(pngBytes), "image/png")
		assert.Equal(t, http.StatusBadRequest, code)
	})
	t.Run("html name with image bytes is served as image", func(t *testing.T) {
		payload := append([]byte("\x89PNG\r\n\x1a\n"), []byte("<script>alert(1)</script>")...)
		body, ctype := multipartBody(t, "file", "evil.html", payload)
		code, resp := postUpload(t, url, body, ctype)
		require.Equal(t, http.StatusOK, code, resp)
		var up uploads.Upload
		require.NoError(t, json.Unmarshal([]byte(resp), &up))
		assert.Regexp(t, `\.png$`, up.URL)

		got, err := http.Get(env.srv.URL + up.URL)
		require.NoError(t, err)
		got.Body.Close()
		assert.Equal(t, "image/png", got.Header.Get("Content-Type"))
		assert.Equal(t, "nosniff", got.Header.Get("X-Content-Type-Options"))
	})
	t.Run("no directory listing", func(t *testing.T) {
		code, _ := do(t, http.MethodGet, env.srv.URL+"/uploads/", "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestAdmin_CORS(t *testing.T) {
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{CORSOrigins: []string{"https://admin.travi.world"}})

	req, _ := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/settings", nil)
	req.Header.Set("Origin", "https://admin.travi.world")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://admin.travi.world", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, env.srv.URL+"/api/settings", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAdmin_RateLimit(t *testing.T) {
	rl := ratelimit.New(0.001, 2, 0)
	defer rl.Stop()
	env := newAdmin(t, &app.MonotonicIDs{}, httpserver.Options{Limiter: rl})

	var codes []int
	for i := 0; i < 3; i++ {
		code, _ := do(t, http.MethodGet, env.srv.URL+"/api/hero", "")
		codes = append(codes, code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}
