package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lrstanley/go-ytdlp"

	"media-fetch-go/pkg/appctx"
	"media-fetch-go/pkg/config"
	"media-fetch-go/pkg/fetcher"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/pool"
)

func newTestMux(t *testing.T, run fetcher.RunnerFunc) *http.ServeMux {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		DownloadsDir:   dir,
		OutputTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
		DefaultRetries: 5,
		WorkerPoolSize: 2,
	}
	log := logging.New("debug", false, io.Discard)

	ctx := appctx.New(cfg, log)
	ctx.WithFetcher(fetcher.New(cfg, log, pool.New(cfg.WorkerPoolSize), nil).WithRunner(run))

	mux := http.NewServeMux()
	NewHandlers(ctx).RegisterRoutes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHandlers_Index(t *testing.T) {
	mux := newTestMux(t, nil)

	w := doRequest(mux, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	body := decodeBody(t, w)
	if !strings.Contains(body["message"].(string), "Welcome") {
		t.Errorf("message = %v", body["message"])
	}
	endpoints, ok := body["endpoints"].(map[string]any)
	if !ok {
		t.Fatalf("endpoints missing from descriptor: %v", body)
	}
	for _, route := range []string{"/info", "/download"} {
		if _, ok := endpoints[route]; !ok {
			t.Errorf("descriptor missing endpoint %s", route)
		}
	}
	if _, ok := body["docs"]; !ok {
		t.Error("descriptor missing docs")
	}
}

func TestHandlers_Health(t *testing.T) {
	mux := newTestMux(t, nil)

	w := doRequest(mux, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "running" {
		t.Errorf("status field = %v, want running", body["status"])
	}
}

func TestHandlers_Info_Success(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		return &ytdlp.Result{Stdout: `{"title": "Demo", "ext": "mp4", "extractor": "generic"}`}, nil
	})

	w := doRequest(mux, http.MethodPost, "/info", `{"url": "https://example.com/video/1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["message"] != "Metadata extracted successfully!" {
		t.Errorf("message = %v", body["message"])
	}
	info, ok := body["info"].(map[string]any)
	if !ok {
		t.Fatalf("info missing: %v", body)
	}
	if info["title"] != "Demo" {
		t.Errorf("info.title = %v, want Demo", info["title"])
	}
}

func TestHandlers_Info_DownloadError(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		return &ytdlp.Result{ExitCode: 1, Stderr: "ERROR: network unreachable"}, errors.New("exit status 1")
	})

	w := doRequest(mux, http.MethodPost, "/info", `{"url": "https://example.com/video/1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	body := decodeBody(t, w)
	detail, _ := body["detail"].(string)
	if !strings.Contains(detail, "Download error: network unreachable") {
		t.Errorf("detail = %q, want download error text", detail)
	}
}

func TestHandlers_Info_ExtractionError(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		return &ytdlp.Result{ExitCode: 1, Stderr: "ERROR: Unsupported URL: https://example.com/page"}, errors.New("exit status 1")
	})

	w := doRequest(mux, http.MethodPost, "/info", `{"url": "https://example.com/page"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	body := decodeBody(t, w)
	detail, _ := body["detail"].(string)
	if !strings.Contains(detail, "Extractor error") || !strings.Contains(detail, "Unsupported URL") {
		t.Errorf("detail = %q, want extractor error text", detail)
	}
}

func TestHandlers_Info_UnexpectedError(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		return nil, errors.New("something exploded")
	})

	w := doRequest(mux, http.MethodPost, "/info", `{"url": "https://example.com/video/1"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	body := decodeBody(t, w)
	detail, _ := body["detail"].(string)
	if strings.Contains(detail, "exploded") {
		t.Errorf("detail %q leaks internal error text", detail)
	}
}

func TestHandlers_Info_Validation(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		t.Error("extractor must not run for invalid requests")
		return nil, nil
	})

	tests := []struct {
		name string
		body string
	}{
		{name: "missing url", body: `{}`},
		{name: "invalid json", body: `{"url":`},
		{name: "negative retries", body: `{"url": "https://example.com/v", "options": {"retries": -2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(mux, http.MethodPost, "/info", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHandlers_Download_Success(t *testing.T) {
	mux := newTestMux(t, func(ctx context.Context, cmd *ytdlp.Command, url string) (*ytdlp.Result, error) {
		return &ytdlp.Result{Stdout: `{
			"title": "Demo",
			"extractor": "generic",
			"requested_downloads": [{"filepath": "downloads/Demo.mp4"}]
		}`}, nil
	})

	w := doRequest(mux, http.MethodPost, "/download", `{"url": "https://example.com/video/1", "options": {"cookies": "sessionid=abc123"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["message"] != "Video downloaded successfully!" {
		t.Errorf("message = %v", body["message"])
	}
	if body["title"] != "Demo" {
		t.Errorf("title = %v, want Demo", body["title"])
	}
	if body["filepath"] != "downloads/Demo.mp4" {
		t.Errorf("filepath = %v", body["filepath"])
	}
	if body["extractor"] != "generic" {
		t.Errorf("extractor = %v, want generic", body["extractor"])
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, nil)

	w := doRequest(mux, http.MethodGet, "/info", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /info status = %d, want 405", w.Code)
	}
}
