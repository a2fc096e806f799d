package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

// testPoolPath returns a pool path in a fresh temp dir and resets the global
// flags to small segments, text output.
func testPoolPath(t *testing.T) string {
	t.Helper()
	jsonOut, quiet, verbose = false, false, false
	allocFill, readLen = 0, 0
	viper.Set("segment-shift", 16)
	viper.Set("max-views", 4)
	t.Cleanup(func() { jsonOut = false })
	return filepath.Join(t.TempDir(), "test.pool")
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	return string(out), fnErr
}
