package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, fail bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/describe-image/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error": "Unsupported file type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"description": "A cat sits on a mat.", "audio_url": "/audio/cat.mp3"}`))
	})
	mux.HandleFunc("/audio/cat.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, dir, baseURL string, withDB bool) string {
	t.Helper()
	content := "backend:\n  base_url: " + baseURL + "\n"
	if withDB {
		content += "database:\n  enabled: true\n  path: " + filepath.Join(dir, "history.db") + "\n"
	}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	return path
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "http://localhost:8000", false)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"-nope"}, 2},
		{"missing image", []string{"-config", cfgPath}, 2},
		{"bad speaker", []string{"-config", cfgPath, "-image", "x.png", "-speaker", "robot"}, 2},
		{"history without database", []string{"-config", cfgPath, "-history", "5"}, 1},
		{"missing config file", []string{"-config", filepath.Join(dir, "absent.yaml")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.want, run(tt.args, &stdout, &stderr))
		})
	}
}

func TestRunDescribesSavesAndRecordsHistory(t *testing.T) {
	srv := newBackend(t, false)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL, true)
	audioPath := filepath.Join(dir, "out.mp3")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", cfgPath, "-image", writeImage(t, dir), "-save", audioPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Audio saved to "+audioPath)

	saved, err := os.ReadFile(audioPath)
	require.NoError(t, err)
	assert.Equal(t, "ID3", string(saved))

	stdout.Reset()
	code = run([]string{"-config", cfgPath, "-history", "5"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "succeeded")
	assert.Contains(t, stdout.String(), "cat.png")
}

func TestRunBackendFailureReturnsAfterCleanup(t *testing.T) {
	srv := newBackend(t, true)
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, srv.URL, true)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"-config", cfgPath, "-image", writeImage(t, dir)}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Unsupported file type")

	stdout.Reset()
	require.Equal(t, 0, run([]string{"-config", cfgPath, "-history", "5"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "failed")
	assert.Contains(t, stdout.String(), "Unsupported file type")
}
