package bridge

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"rtsp2hls/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	fragmentContentType = "video/mp2t"
)

// Handler serves the playlist and media fragments straight from the segment
// directory. It never writes there; the transcoder is the directory's only
// writer, so no coordination beyond the filesystem is needed.
type Handler struct {
	dir     string
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler serving files from dir. Metrics may be nil
// to disable metric recording (e.g. in tests).
func NewHandler(dir string, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{dir: dir, log: log, metrics: m}
}

// Register attaches the streaming routes to r. The fragment route is a
// catch-all for single-segment GET and HEAD paths; Fragment itself decides
// what is a well-formed fragment name, so every other path falls out as 404
// and other methods as 405.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Root)
	r.Head("/", h.Root)
	r.Get("/"+playlistName, h.Playlist)
	r.Head("/"+playlistName, h.Playlist)
	r.Get("/{fragment}", h.Fragment)
	r.Head("/{fragment}", h.Fragment)
}

// Root redirects to the playlist, preserving the request method.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/"+playlistName, http.StatusTemporaryRedirect)
}

// Playlist handles GET|HEAD /index.m3u8. The path is fixed; no request
// input reaches the filesystem here. Live playlists mutate constantly, so
// clients are told not to cache them.
func (h *Handler) Playlist(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	h.serveFile(w, r, playlistName, playlistContentType, false)
}

// Fragment handles GET|HEAD /live-NNNNNNNN.ts. A malformed name and a
// missing file are both 404; a fragment evicted between the playlist read
// and this request is the same ordinary 404.
func (h *Handler) Fragment(w http.ResponseWriter, r *http.Request) {
	name, ok := ParseFragment(r.URL.Path)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.serveFile(w, r, name, fragmentContentType, true)
}

// serveFile streams one file from the segment directory. name must already
// be validated; it is joined onto the directory as-is.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name, contentType string, isFragment bool) {
	f, err := os.Open(filepath.Join(h.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.log.Error("cannot open file",
			slog.String("name", name),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.log.Error("cannot stream file", slog.String("name", name))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, f); err != nil {
		// Headers are already out; the client likely went away mid-transfer.
		h.log.Debug("response body aborted",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return
	}
	if isFragment && h.metrics != nil {
		h.metrics.IncFragmentsServed()
	}
}
