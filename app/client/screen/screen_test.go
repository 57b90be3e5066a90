package screen

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureReadsCommandOutputFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	c := NewCapturer([]string{"sh", "-c", "printf PNGDATA > {file}"}, t.TempDir())

	data, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
}

func TestCaptureEmptyFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	c := NewCapturer([]string{"sh", "-c", "true {file}"}, t.TempDir())

	_, err := c.Capture(context.Background())
	require.ErrorIs(t, err, ErrEmptyCapture)
}

func TestCaptureCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	c := NewCapturer([]string{"sh", "-c", "echo no display >&2; exit 3"}, t.TempDir())

	_, err := c.Capture(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}
