package proxy

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGateway(t *testing.T, upstream http.Handler) *fiber.App {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	p := New(srv.URL, "/api/v1", 5*time.Second, zap.NewNop())
	app := fiber.New()
	app.All("/api/v1/*", p.Handler())
	return app
}

func TestForwardStripsPrefixAndKeepsQuery(t *testing.T) {
	var gotPath, gotQuery, gotBody string
	app := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("\x89PNG"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/pan?wait=true", strings.NewReader(`{"dx":1}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "/sessions/abc/pan", gotPath)
	assert.Equal(t, "wait=true", gotQuery)
	assert.Equal(t, `{"dx":1}`, gotBody)
}

func TestForwardMultipartKeepsFilename(t *testing.T) {
	var gotName string
	var gotData []byte
	app := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err == nil {
			gotName = header.Filename
			gotData, _ = io.ReadAll(file)
		}
		w.WriteHeader(http.StatusOK)
	}))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "plan.dxf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("0\nEOF\n"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/abc/document", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "plan.dxf", gotName)
	assert.Equal(t, "0\nEOF\n", string(gotData))
}

func TestUpstreamDown(t *testing.T) {
	p := New("http://127.0.0.1:1", "/api/v1", time.Second, zap.NewNop())
	app := fiber.New()
	app.All("/api/v1/*", p.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/icons", nil), fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
