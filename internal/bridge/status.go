package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/grafov/m3u8"
)

// Health answers GET /healthz with a JSON snapshot of the bridge's state:
// transcoder liveness, how many fragments sit in the segment directory, and
// what the live playlist currently advertises. It reads the same artifacts
// the stream routes serve and never touches the watchdog's state.
type Health struct {
	dir  string
	proc Liveness
	log  *slog.Logger
}

// NewHealth returns a Health probe over dir and the given process.
func NewHealth(dir string, proc Liveness, log *slog.Logger) *Health {
	return &Health{dir: dir, proc: proc, log: log}
}

type playlistInfo struct {
	TargetDuration float64 `json:"target_duration"`
	MediaSequence  uint64  `json:"media_sequence"`
	Fragments      int     `json:"fragments"`
}

type healthReport struct {
	TranscoderAlive bool          `json:"transcoder_alive"`
	Fragments       int           `json:"fragments"`
	Playlist        *playlistInfo `json:"playlist,omitempty"`
}

// ServeHTTP reports 200 while the transcoder runs and the segment directory
// is readable, 503 otherwise. A playlist that does not exist yet (right
// after startup, before the first fragment) is not a failure; the playlist
// block is simply omitted.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rep := healthReport{}
	healthy := true

	alive, err := h.proc.IsAlive()
	rep.TranscoderAlive = err == nil && alive
	if !rep.TranscoderAlive {
		healthy = false
	}

	if snap, err := takeSnapshot(h.dir); err != nil {
		healthy = false
	} else {
		rep.Fragments = len(snap)
	}

	rep.Playlist = h.decodePlaylist()

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		h.log.Debug("health response aborted", slog.String("error", err.Error()))
	}
}

// decodePlaylist parses the live playlist, returning nil when it is absent
// or not yet a valid media playlist.
func (h *Health) decodePlaylist() *playlistInfo {
	f, err := os.Open(filepath.Join(h.dir, playlistName))
	if err != nil {
		return nil
	}
	defer f.Close()

	pl, kind, err := m3u8.DecodeFrom(f, false)
	if err != nil || kind != m3u8.MEDIA {
		return nil
	}
	media, ok := pl.(*m3u8.MediaPlaylist)
	if !ok {
		return nil
	}

	count := 0
	for _, seg := range media.Segments {
		if seg != nil {
			count++
		}
	}
	return &playlistInfo{
		TargetDuration: media.TargetDuration,
		MediaSequence:  media.SeqNo,
		Fragments:      count,
	}
}
