package screen

import (
	"context"
	"eleven/app/config"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/samber/do"
)

const (
	captureTimeout = 15 * time.Second
	MIMEType       = "image/png"
)

var ErrEmptyCapture = errors.New("screen capture produced no image")

func defaultCommand(goos string) []string {
	switch goos {
	case "windows":
		return []string{"powershell", "-NoProfile", "-Command",
			"Add-Type -AssemblyName System.Windows.Forms,System.Drawing; " +
				"$b = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds; " +
				"$bmp = New-Object System.Drawing.Bitmap $b.Width, $b.Height; " +
				"[System.Drawing.Graphics]::FromImage($bmp).CopyFromScreen($b.Location, [System.Drawing.Point]::Empty, $b.Size); " +
				"$bmp.Save('{file}')"}
	case "darwin":
		return []string{"screencapture", "-x", "{file}"}
	default:
		return []string{"gnome-screenshot", "-f", "{file}"}
	}
}

// Capturer takes screenshots by running an external capture command into a temp file.
type Capturer struct {
	command []string
	tempDir string
}

func New(di *do.Injector) (*Capturer, error) {
	cfg := do.MustInvoke[*config.Store](di).Get()
	return NewCapturer(cfg.Screen.CaptureCommand, ""), nil
}

func NewCapturer(command []string, tempDir string) *Capturer {
	if len(command) == 0 {
		command = defaultCommand(runtime.GOOS)
	}

	return &Capturer{
		command: slices.Clone(command),
		tempDir: tempDir,
	}
}

// Capture returns the screenshot as PNG bytes.
func (c *Capturer) Capture(ctx context.Context) ([]byte, error) {
	file, err := os.CreateTemp(c.tempDir, "eleven-screen-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := file.Name()
	_ = file.Close()
	defer os.Remove(path)

	args := make([]string, len(c.command))
	for i, arg := range c.command {
		args[i] = strings.ReplaceAll(arg, "{file}", filepath.ToSlash(path))
	}

	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("capture command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyCapture
	}

	return data, nil
}
