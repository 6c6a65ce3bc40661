package bridge

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Transcoder invocation policy. The segment length, retention window, and
// file names are fixed; everything downstream (watchdog period, fragment
// grammar, playlist route) is derived from these.
const (
	// SegmentDuration is the length of one media fragment.
	SegmentDuration = time.Second

	retainedFragments = 2
	fragmentTemplate  = "live-%08d.ts"
	playlistName      = "index.m3u8"
)

// Transcoder launches and supervises the external ffmpeg process that turns
// the RTSP source into HLS fragments inside the segment directory.
type Transcoder struct {
	source    string
	dir       string
	verifyTLS bool
	log       *slog.Logger

	// ffmpegPath is resolved from PATH by default; tests point it elsewhere.
	ffmpegPath string
}

// NewTranscoder returns a Transcoder that will read from source and write
// fragments and the playlist into dir.
func NewTranscoder(source, dir string, verifyTLS bool, log *slog.Logger) *Transcoder {
	return &Transcoder{
		source:     source,
		dir:        dir,
		verifyTLS:  verifyTLS,
		log:        log,
		ffmpegPath: "ffmpeg",
	}
}

// Start spawns the transcoder process and begins monitoring it. A spawn
// error (binary missing, permissions) is returned immediately and is a
// startup failure; nothing is reported on failures in that case. Once
// running, any exit of the child, even with status 0, is reported on
// failures as a fatal condition.
func (t *Transcoder) Start(failures chan<- Failure) (*Handle, error) {
	cmd := exec.Command(t.ffmpegPath, buildArgs(t.source, t.verifyTLS)...)
	cmd.Dir = t.dir
	cmd.Stdout = newLogWriter(t.log, "stdout")
	cmd.Stderr = newLogWriter(t.log, "stderr")

	handle, err := startHandle(cmd, failures)
	if err != nil {
		return nil, fmt.Errorf("start transcoder: %w", err)
	}
	t.log.Info("transcoder started",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("dir", t.dir),
	)
	return handle, nil
}

// buildArgs assembles the fixed ffmpeg invocation: stream-copy the RTSP
// source into one-second fragments, retain two, evict the rest, and write
// the playlist next to them. Output paths are relative so they land in the
// process working directory, which Start sets to the segment directory.
func buildArgs(source string, verifyTLS bool) []string {
	tlsVerify := "0"
	if verifyTLS {
		tlsVerify = "1"
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-rtsp_transport", "tcp",
		"-tls_verify", tlsVerify,
		"-i", source,
		"-c", "copy",
		"-f", "hls",
		"-hls_time", strconv.Itoa(int(SegmentDuration / time.Second)),
		"-hls_list_size", strconv.Itoa(retainedFragments),
		"-hls_flags", "delete_segments",
		"-hls_segment_filename", fragmentTemplate,
		playlistName,
	}
}

// Handle owns exactly one running transcoder process. Its lifetime is the
// lifetime of the bridge: the monitor goroutine reports any exit as a fatal
// Failure, and Stop guarantees the process is gone on teardown.
type Handle struct {
	cmd     *exec.Cmd
	done    chan struct{} // closed after Wait returns; waitErr is set before
	waitErr error

	stopOnce sync.Once
	stopping chan struct{} // closed when Stop begins; suppresses reporting
}

// startHandle spawns cmd and monitors it on a background goroutine.
func startHandle(cmd *exec.Cmd, failures chan<- Failure) (*Handle, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	h := &Handle{
		cmd:      cmd,
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
	}
	go h.monitor(failures)
	return h, nil
}

// monitor blocks until the process exits, then reports the exit as a fatal
// Failure unless Stop initiated the teardown. An error from Wait that is
// not an exit status means the process state is unknowable, which is
// reported with its own kind.
func (h *Handle) monitor(failures chan<- Failure) {
	err := h.cmd.Wait()
	h.waitErr = err
	close(h.done)

	select {
	case <-h.stopping:
		return
	default:
	}

	if err != nil && !isExitError(err) {
		report(failures, Failure{Kind: FailureSupervision, Err: err})
		return
	}
	report(failures, Failure{Kind: FailureTranscoderExited, Err: err})
}

// IsAlive reports whether the process is still running, without blocking.
// After an exit it returns false; if waiting on the process failed for a
// reason other than an exit status, that error is propagated.
func (h *Handle) IsAlive() (bool, error) {
	select {
	case <-h.done:
		if h.waitErr != nil && !isExitError(h.waitErr) {
			return false, h.waitErr
		}
		return false, nil
	default:
		return true, nil
	}
}

// Stop kills the process if it is still running and waits until the exit
// has been observed. It never reports a Failure and is safe to call more
// than once; the second and later calls just wait.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopping)
		select {
		case <-h.done:
		default:
			_ = h.cmd.Process.Kill()
		}
	})
	<-h.done
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// logWriter forwards one output stream of the subprocess to the logger,
// line by line. Partial lines are buffered until their newline arrives.
type logWriter struct {
	log    *slog.Logger
	stream string

	mu  sync.Mutex
	buf []byte
}

func newLogWriter(log *slog.Logger, stream string) *logWriter {
	return &logWriter{log: log, stream: stream}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		idx := bytes.IndexByte(w.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(w.buf[:idx]), "\r")
		w.buf = w.buf[idx+1:]
		if line == "" {
			continue
		}
		w.log.Debug("transcoder output",
			slog.String("stream", w.stream),
			slog.String("line", line),
		)
	}
	return len(p), nil
}
