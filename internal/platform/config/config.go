package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names understood by New.
const (
	envSource    = "RTSP2HLS_SOURCE"
	envListen    = "RTSP2HLS_LISTEN"
	envMaxConn   = "RTSP2HLS_MAXCONN"
	envTempDir   = "RTSP2HLS_TEMPDIR"
	envVerifyTLS = "RTSP2HLS_VERIFYTLS"
	envGrace     = "RTSP2HLS_GRACE"
)

// Config is the validated runtime configuration of the bridge.
type Config struct {
	// Source is the RTSP URL handed to the transcoder. Required.
	Source string
	// Listen is the address the HTTP server binds to.
	Listen string
	// MaxConn caps the number of concurrently served requests.
	MaxConn int
	// TempDir is the canonicalized segment directory. It must exist.
	TempDir string
	// VerifyTLS controls certificate validation toward the source.
	VerifyTLS bool
	// Grace is the watchdog grace multiplier in segment durations.
	Grace int
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// New assembles a Config from the environment. A missing source URL, a
// malformed numeric or boolean value, or a segment directory that does not
// exist all return an error naming the offending variable. The segment
// directory is canonicalized so the transcoder and the HTTP layer agree on
// one absolute path.
func New() (*Config, error) {
	source := os.Getenv(envSource)
	if source == "" {
		return nil, fmt.Errorf("missing environment variable %q", envSource)
	}

	maxConn, err := GetEnvInt(envMaxConn, 1024)
	if err != nil {
		return nil, err
	}
	if maxConn < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1, got %d", envMaxConn, maxConn)
	}

	grace, err := GetEnvInt(envGrace, 10)
	if err != nil {
		return nil, err
	}
	if grace < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1, got %d", envGrace, grace)
	}

	verifyTLS, err := GetEnvBool(envVerifyTLS, true)
	if err != nil {
		return nil, err
	}

	tempDir, err := canonicalDir(GetEnv(envTempDir, "/tmp/rtsp2hls"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envTempDir, err)
	}

	return &Config{
		Source:    source,
		Listen:    GetEnv(envListen, "[::]:8080"),
		MaxConn:   maxConn,
		TempDir:   tempDir,
		VerifyTLS: verifyTLS,
		Grace:     grace,
	}, nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset or empty. A set but non-integer value is
// an error, not a fallback.
func GetEnvInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, s, err)
	}
	return n, nil
}

// GetEnvBool is GetEnvInt's boolean counterpart; it accepts the forms
// recognized by strconv.ParseBool.
func GetEnvBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, s, err)
	}
	return b, nil
}

// canonicalDir resolves path to an absolute, symlink-free directory path.
// The directory must already exist; it is never created here.
func canonicalDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", resolved)
	}
	return resolved, nil
}
