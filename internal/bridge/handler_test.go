package bridge

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, dir string) *chi.Mux {
	t.Helper()
	h := NewHandler(dir, testLogger(), nil)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func serve(r *chi.Mux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_root_redirects_to_playlist(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rec := serve(r, method, "/")
		if rec.Code != http.StatusTemporaryRedirect {
			t.Errorf("%s /: expected 307, got %d", method, rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/index.m3u8" {
			t.Errorf("%s /: expected redirect to /index.m3u8, got %q", method, loc)
		}
	}
}

func TestHandler_playlist_ok(t *testing.T) {
	dir := t.TempDir()
	playlist := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:1\n"
	if err := os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte(playlist), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r := newTestRouter(t, dir)

	rec := serve(r, http.MethodGet, "/index.m3u8")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("content type: got %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("cache control: got %q", cc)
	}
	if rec.Body.String() != playlist {
		t.Errorf("body: got %q", rec.Body.String())
	}
}

func TestHandler_playlist_head_no_body(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r := newTestRouter(t, dir)

	rec := serve(r, http.MethodHead, "/index.m3u8")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD must not carry a body, got %d bytes", rec.Body.Len())
	}
	if cl := rec.Header().Get("Content-Length"); cl != "8" {
		t.Errorf("content length: got %q", cl)
	}
}

func TestHandler_playlist_missing(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	rec := serve(r, http.MethodGet, "/index.m3u8")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_playlist_unstreamable(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "index.m3u8"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r := newTestRouter(t, dir)

	rec := serve(r, http.MethodGet, "/index.m3u8")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandler_fragment_ok(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0x47, 0x40, 0x11, 0x10, 0x00} // MPEG-TS sync byte first
	if err := os.WriteFile(filepath.Join(dir, "live-00000005.ts"), payload, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	r := newTestRouter(t, dir)

	rec := serve(r, http.MethodGet, "/live-00000005.ts")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp2t" {
		t.Errorf("content type: got %q", ct)
	}
	if got := rec.Body.Bytes(); string(got) != string(payload) {
		t.Errorf("body: got % x, want % x", got, payload)
	}
}

func TestHandler_fragment_valid_name_missing_file(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	rec := serve(r, http.MethodGet, "/live-00000042.ts")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_fragment_malformed_names(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	for _, path := range []string{"/nonexistent.ts", "/live-0000000a.ts", "/xive-00000001.ts", "/live-00000001.tx"} {
		rec := serve(r, http.MethodGet, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestHandler_method_not_allowed(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	for _, path := range []string{"/index.m3u8", "/", "/live-00000005.ts"} {
		rec := serve(r, http.MethodPost, path)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: expected 405, got %d", path, rec.Code)
		}
	}
}

func TestHandler_unknown_nested_path(t *testing.T) {
	r := newTestRouter(t, t.TempDir())

	rec := serve(r, http.MethodGet, "/segments/live-00000005.ts")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
