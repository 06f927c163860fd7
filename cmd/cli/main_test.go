package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SaqibMamoon/post-fmriprep-analysis/internal/cli"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "expected help text to be printed to the output buffer")
}

func TestRun_NoArgs(t *testing.T) {
	t.Parallel()

	// A bare invocation prints usage but must still exit non-zero.
	out := &bytes.Buffer{}

	err := run(out, nil)

	require.Error(t, err)
	exitErr, ok := err.(*cli.ExitError)
	require.True(t, ok, "expected an ExitError")
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_InvalidAnalysisLevel(t *testing.T) {
	t.Parallel()

	args := []string{"derivatives", "out", "banana"}
	out := &bytes.Buffer{}

	err := run(out, args)

	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid analysis level")
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// A contrast file with broken HCL is guaranteed to panic inside
	// app.NewApp; run() must recover it into a clean error.
	tempDir := t.TempDir()
	contrastPath := filepath.Join(tempDir, "contrasts.hcl")
	err := os.WriteFile(contrastPath, []byte(`contrast "x" {`), 0o600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"--contrasts", contrastPath, "derivatives", "out", "participant"}
	out := &bytes.Buffer{}

	runErr := run(out, args)

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "failed to load contrast configuration")
}
