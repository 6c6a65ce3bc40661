package bridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const testPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:1
#EXT-X-MEDIA-SEQUENCE:5
#EXTINF:1.000000,
live-00000005.ts
#EXTINF:1.000000,
live-00000006.ts
`

func probeHealth(t *testing.T, h *Health) (*httptest.ResponseRecorder, healthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var rep healthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	return rec, rep
}

func TestHealth_running_with_playlist(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte(testPlaylist), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	writeFragment(t, dir, "live-00000005.ts")
	writeFragment(t, dir, "live-00000006.ts")

	h := NewHealth(dir, fakeProc{alive: true}, testLogger())
	rec, rep := probeHealth(t, h)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !rep.TranscoderAlive {
		t.Error("transcoder_alive should be true")
	}
	if rep.Fragments != 2 {
		t.Errorf("fragments: got %d, want 2", rep.Fragments)
	}
	if rep.Playlist == nil {
		t.Fatal("playlist block should be present")
	}
	if rep.Playlist.TargetDuration != 1 {
		t.Errorf("target_duration: got %v", rep.Playlist.TargetDuration)
	}
	if rep.Playlist.MediaSequence != 5 {
		t.Errorf("media_sequence: got %d", rep.Playlist.MediaSequence)
	}
	if rep.Playlist.Fragments != 2 {
		t.Errorf("playlist fragments: got %d", rep.Playlist.Fragments)
	}
}

func TestHealth_before_first_fragment(t *testing.T) {
	h := NewHealth(t.TempDir(), fakeProc{alive: true}, testLogger())
	rec, rep := probeHealth(t, h)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 while starting up, got %d", rec.Code)
	}
	if rep.Fragments != 0 {
		t.Errorf("fragments: got %d, want 0", rep.Fragments)
	}
	if rep.Playlist != nil {
		t.Error("playlist block should be omitted before the playlist exists")
	}
}

func TestHealth_dead_transcoder(t *testing.T) {
	h := NewHealth(t.TempDir(), fakeProc{alive: false}, testLogger())
	rec, rep := probeHealth(t, h)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rep.TranscoderAlive {
		t.Error("transcoder_alive should be false")
	}
}

func TestHealth_unreadable_directory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "removed")
	h := NewHealth(dir, fakeProc{alive: true}, testLogger())
	rec, _ := probeHealth(t, h)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
