package transcribe

import (
	"bufio"
	"context"
	"eleven/app/client/speechkit"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// micCapture records the microphone through ffmpeg as raw 16 kHz mono s16le PCM on stdout.
type micCapture struct {
	cmd   *exec.Cmd
	audio io.ReadCloser
	logs  io.ReadCloser

	stopOnce sync.Once
}

func defaultInputFormat(goos string) string {
	switch goos {
	case "windows":
		return "dshow"
	case "darwin":
		return "avfoundation"
	default:
		return "pulse"
	}
}

func captureArgs(format, device string) []string {
	if format == "" {
		format = defaultInputFormat(runtime.GOOS)
	}
	if device == "" {
		device = "default"
	}

	return []string{
		"-loglevel", "warning",
		"-f", format,
		"-i", device,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(speechkit.SampleRate),
		"-f", "s16le",
		"-",
	}
}

// startCapture launches ffmpeg. The process dies with ctx or on stop.
func startCapture(ctx context.Context, format, device string) (*micCapture, error) {
	args := captureArgs(format, device)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	audio, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe ffmpeg stdout: %w", err)
	}

	logs, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe ffmpeg stderr: %w", err)
	}

	slog.Debug("Starting microphone capture", "cmd", "ffmpeg "+strings.Join(args, " "))

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	c := &micCapture{
		cmd:   cmd,
		audio: audio,
		logs:  logs,
	}

	go c.forwardLogs()

	return c, nil
}

func (c *micCapture) stop() {
	c.stopOnce.Do(func() {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	})
}

func (c *micCapture) forwardLogs() {
	scanner := bufio.NewScanner(c.logs)
	for scanner.Scan() {
		slog.Debug("ffmpeg", "line", scanner.Text())
	}
}
