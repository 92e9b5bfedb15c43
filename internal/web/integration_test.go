package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/peoplegallery/internal/domain"
	"github.com/vbonduro/peoplegallery/internal/jsonstore"
	"github.com/vbonduro/peoplegallery/internal/metrics"
	"github.com/vbonduro/peoplegallery/internal/photostore/local"
	"github.com/vbonduro/peoplegallery/internal/service"
	"github.com/vbonduro/peoplegallery/internal/web"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

type testEnv struct {
	srv       *httptest.Server
	publicDir string
	uploadDir string
	dataFile  string
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		publicDir: filepath.Join(root, "public"),
		uploadDir: filepath.Join(root, "public", "uploads"),
		dataFile:  filepath.Join(root, "data.json"),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	photos, err := local.NewLocalPhotoStore(env.uploadDir)
	require.NoError(t, err)

	people := service.NewPeopleService(jsonstore.NewPersonStore(env.dataFile, logger), logger)
	gallery := service.NewGalleryService(
		jsonstore.NewItemStore(filepath.Join(root, "items.json"), logger), photos, nil, logger)

	server := web.NewServer(people, gallery, photos, metrics.NewCollector(), web.Options{
		PublicDir:      env.publicDir,
		MaxUploadBytes: maxUpload,
		CORSOrigins:    []string{"*"},
	}, logger)

	env.srv = httptest.NewServer(server)
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) postJSON(t *testing.T, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return readResponse(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	return readResponse(t, resp)
}

func (e *testEnv) postItem(t *testing.T, title, filename string, photo []byte) (*http.Response, []byte) {
	t.Helper()
	body, contentType := buildMultipartBody(t, title, filename, photo)
	resp, err := http.Post(e.srv.URL+"/items", contentType, body)
	require.NoError(t, err)
	return readResponse(t, resp)
}

func readResponse(t *testing.T, resp *http.Response) (*http.Response, []byte) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// buildMultipartBody creates a multipart/form-data body with a "title" field
// and, when photo is non-nil, a "photo" file field.
func buildMultipartBody(t *testing.T, title, filename string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	require.NoError(t, w.WriteField("title", title))
	if photo != nil {
		fw, err := w.CreateFormFile("photo", filename)
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Error
}

func TestIntegration_CreatePersonValidation(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name":"","age":30}`},
		{"blank name", `{"name":"   ","age":30}`},
		{"missing name", `{"age":30}`},
		{"negative age", `{"name":"Ann","age":-1}`},
		{"non-numeric age", `{"name":"Ann","age":"abc"}`},
		{"missing age", `{"name":"Ann"}`},
		{"boolean age", `{"name":"Ann","age":true}`},
		{"malformed json", `{"name":`},
		{"empty body", ``},
		{"trailing garbage", `{"name":"a","age":1} junk`},
		{"second object", `{"name":"a","age":1}{"name":"b","age":2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.postJSON(t, "/people", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.NotEmpty(t, errorMessage(t, body))
		})
	}

	_, body := env.get(t, "/people")
	assert.JSONEq(t, `[]`, string(body))
}

func TestIntegration_CreateAndListPeople(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.postJSON(t, "/people", `{"name":"Ann","age":30}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"ok":true}`, string(body))

	resp, body = env.postJSON(t, "/people", `{"name":"  Bob ","age":"41.5"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.get(t, "/people")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"name":"Ann","age":30},{"name":"Bob","age":41.5}]`, string(body))

	// The data file is the plain JSON array.
	data, err := os.ReadFile(env.dataFile)
	require.NoError(t, err)
	var onDisk []domain.Person
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []domain.Person{{Name: "Ann", Age: 30}, {Name: "Bob", Age: 41.5}}, onDisk)
}

func TestIntegration_NegativeZeroAgeListedAsZero(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.postJSON(t, "/people", `{"name":"Z","age":-0}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	_, body = env.get(t, "/people")
	assert.JSONEq(t, `[{"name":"Z","age":0}]`, string(body))
	assert.NotContains(t, string(body), "-0")

	data, err := os.ReadFile(env.dataFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "-0")
}

func TestIntegration_SearchPeople(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	for _, body := range []string{`{"name":"Ann","age":30}`, `{"name":"Carl","age":52}`, `{"name":"Dana","age":25}`} {
		resp, _ := env.postJSON(t, "/people", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	_, body := env.get(t, "/people/search?q=an")
	assert.JSONEq(t, `[{"name":"Ann","age":30},{"name":"Dana","age":25}]`, string(body))

	_, body = env.get(t, "/people/search?q=AN")
	assert.JSONEq(t, `[{"name":"Ann","age":30},{"name":"Dana","age":25}]`, string(body))

	_, body = env.get(t, "/people/search?q=5")
	assert.JSONEq(t, `[{"name":"Carl","age":52},{"name":"Dana","age":25}]`, string(body))

	_, body = env.get(t, "/people/search")
	var all []domain.Person
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 3)

	_, body = env.get(t, "/people/search?q=zzz")
	assert.JSONEq(t, `[]`, string(body))
}

func TestIntegration_ConcurrentCreatePeople(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(env.srv.URL+"/people", "application/json",
				strings.NewReader(fmt.Sprintf(`{"name":"p%d","age":%d}`, i, i)))
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusCreated, resp.StatusCode)
				_ = resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	_, body := env.get(t, "/people")
	var people []domain.Person
	require.NoError(t, json.Unmarshal(body, &people))
	assert.Len(t, people, n)
}

func TestIntegration_CreateItemWithoutPhoto(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.postItem(t, "Sunset", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "photo is required", errorMessage(t, body))

	resp, body = env.postJSON(t, "/items", `{"title":"Sunset"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, body))
}

func TestIntegration_CreateItemValidation(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.postItem(t, "   ", "a.jpg", minimalJPEG)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title is required", errorMessage(t, body))

	resp, _ = env.postItem(t, "Notes", "a.txt", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIntegration_CreateAndListItems(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	before := time.Now().UTC().Add(-time.Second)

	resp, body := env.postItem(t, "Sunset", "beach.jpg", minimalJPEG)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var item struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		CreatedAt string `json:"createdAt"`
	}
	require.NoError(t, json.Unmarshal(body, &item))
	assert.NotEmpty(t, item.ID)
	assert.Regexp(t, `^[0-9]+$`, item.ID)
	assert.Equal(t, "Sunset", item.Title)
	assert.Regexp(t, `^/uploads/[0-9a-z]+-[0-9a-f]{6}\.jpg$`, item.URL)

	created, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	require.NoError(t, err)
	assert.True(t, created.After(before))
	assert.Equal(t, time.UTC, created.Location())

	// The photo is on disk and served back.
	name := strings.TrimPrefix(item.URL, "/uploads/")
	onDisk, err := os.ReadFile(filepath.Join(env.uploadDir, name))
	require.NoError(t, err)
	assert.Equal(t, minimalJPEG, onDisk)

	resp, photo := env.get(t, item.URL)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, minimalJPEG, photo)

	resp, body = env.get(t, "/items")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0]["id"])
	assert.NotContains(t, items[0], "caption")
}

func TestIntegration_UploadExtensionFollowsSniffedType(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	polyglot := []byte("GIF89a<html><body><script>alert(document.domain)</script></body></html>")

	for _, filename := range []string{"x.html", "x.svg", "x.js", "x.htm"} {
		t.Run(filename, func(t *testing.T) {
			resp, body := env.postItem(t, "Polyglot", filename, polyglot)
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

			var item struct {
				URL string `json:"url"`
			}
			require.NoError(t, json.Unmarshal(body, &item))
			assert.Regexp(t, `^/uploads/[0-9a-z]+-[0-9a-f]{6}\.gif$`, item.URL)

			resp, photo := env.get(t, item.URL)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "image/gif", resp.Header.Get("Content-Type"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			assert.Equal(t, polyglot, photo)
		})
	}

	// A matching client extension is kept.
	resp, body := env.postItem(t, "Photo", "photo.JPEG", minimalJPEG)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var item struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(body, &item))
	assert.True(t, strings.HasSuffix(item.URL, ".jpeg"), item.URL)
}

func TestIntegration_SearchItems(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	for _, title := range []string{"Sunset", "Harbour", "Sunrise"} {
		resp, body := env.postItem(t, title, "p.jpg", minimalJPEG)
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	_, body := env.get(t, "/items/search?q=sUn")
	var items []domain.Item
	require.NoError(t, json.Unmarshal(body, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "Sunset", items[0].Title)
	assert.Equal(t, "Sunrise", items[1].Title)

	_, body = env.get(t, "/items/search?q=")
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Len(t, items, 3)
}

func TestIntegration_UploadTooLarge(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.postItem(t, "Big", "big.jpg", append(minimalJPEG, make([]byte, 4096)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "upload too large", errorMessage(t, body))

	_, body = env.get(t, "/items")
	assert.JSONEq(t, `[]`, string(body))
}

func TestIntegration_UploadsPathTraversal(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	require.NoError(t, os.WriteFile(filepath.Join(env.publicDir, "secret.txt"), []byte("s"), 0o644))

	for _, p := range []string{"/uploads/..%2Fsecret.txt", "/uploads/..%2F..%2Fdata.json", "/uploads/missing.jpg"} {
		resp, body := env.get(t, p)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, p)
		assert.NotEqual(t, "s", string(body))
	}
}

func TestIntegration_DebugUploads(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.postItem(t, "Sunset", "a.png", minimalJPEG)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = env.get(t, "/debug/uploads")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Count int `json:"count"`
		Files []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, 1, out.Count)
	assert.True(t, strings.HasSuffix(out.Files[0].Name, ".jpg"), out.Files[0].Name)
	assert.Equal(t, int64(len(minimalJPEG)), out.Files[0].Size)
}

func TestIntegration_Routes(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.get(t, "/__routes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var routes []struct {
		Method string `json:"method"`
		Path   string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(body, &routes))

	got := make(map[string]bool, len(routes))
	for _, r := range routes {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /people", "GET /people", "GET /people/search",
		"POST /items", "GET /items", "GET /items/search",
		"GET /uploads/{name}", "GET /debug/uploads", "GET /__routes",
		"GET /health", "GET /metrics",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestIntegration_StaticFiles(t *testing.T) {
	env := newTestEnv(t, 1<<20)
	require.NoError(t, os.WriteFile(filepath.Join(env.publicDir, "index.html"), []byte("<h1>gallery</h1>"), 0o644))

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<h1>gallery</h1>", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, body = env.get(t, "/nope.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", errorMessage(t, body))
}

func TestIntegration_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, env.srv.URL+"/people", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp, body := readResponse(t, resp)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "method not allowed", errorMessage(t, body))
}

func TestIntegration_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	resp, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, _ = env.postJSON(t, "/people", `{"name":"Ann","age":30}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "peoplegallery_people_created_total 1")
	assert.Contains(t, string(body), `peoplegallery_http_requests_total{method="POST",route="/people",status="201"} 1`)
}

func TestIntegration_CORS(t *testing.T) {
	env := newTestEnv(t, 1<<20)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, env.srv.URL+"/people", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp, _ = readResponse(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
