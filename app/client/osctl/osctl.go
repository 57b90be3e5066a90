package osctl

import (
	"context"
	"eleven/app/config"
	"errors"
	"fmt"
	"maps"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/do"
)

var ErrUnsupported = errors.New("not supported on this platform")

// execFunc starts name with args. With wait set it runs to completion and returns the combined output.
type execFunc func(ctx context.Context, wait bool, name string, args ...string) ([]byte, error)

// Client launches applications and controls the desktop through the platform's own tools.
type Client struct {
	goos    string
	aliases map[string]string
	exec    execFunc
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Store](di).Get()
	return NewClient(runtime.GOOS, cfg.OS.AppAliases), nil
}

func NewClient(goos string, extra map[string]string) *Client {
	aliases := maps.Clone(defaultAliases[goos])
	if aliases == nil {
		aliases = make(map[string]string)
	}
	maps.Copy(aliases, webAliases)
	for name, target := range extra {
		aliases[strings.ToLower(name)] = target
	}

	return &Client{
		goos:    goos,
		aliases: aliases,
		exec:    execCommand,
	}
}

func execCommand(ctx context.Context, wait bool, name string, args ...string) ([]byte, error) {
	if !wait {
		return nil, exec.Command(name, args...).Start()
	}

	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Resolve maps a spoken application name to its launch target.
func (c *Client) Resolve(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if target, ok := c.aliases[key]; ok {
		return target
	}

	return key
}

func (c *Client) OpenApp(ctx context.Context, name string) error {
	target := c.Resolve(name)
	if target == "" {
		return errors.New("empty application name")
	}

	if isURL(target) {
		return c.OpenURL(ctx, target)
	}

	var err error
	switch c.goos {
	case "windows":
		_, err = c.exec(ctx, false, "cmd", "/c", "start", "", target)
	case "darwin":
		_, err = c.exec(ctx, false, "open", "-a", target)
	default:
		_, err = c.exec(ctx, false, target)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	return nil
}

func (c *Client) OpenURL(ctx context.Context, url string) error {
	if err := c.open(ctx, url); err != nil {
		return fmt.Errorf("failed to open url: %w", err)
	}

	return nil
}

// OpenPath opens a file or folder with the default handler.
func (c *Client) OpenPath(ctx context.Context, path string) error {
	if err := c.open(ctx, filepath.Clean(path)); err != nil {
		return fmt.Errorf("failed to open path: %w", err)
	}

	return nil
}

func (c *Client) open(ctx context.Context, target string) error {
	var err error

	switch c.goos {
	case "windows":
		_, err = c.exec(ctx, false, "rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		_, err = c.exec(ctx, false, "open", target)
	default:
		_, err = c.exec(ctx, false, "xdg-open", target)
	}

	return err
}

// CloseApp terminates the named application. The name is passed as an argument, never through a shell.
func (c *Client) CloseApp(ctx context.Context, name string) error {
	bin, args := c.closeArgs(name)

	if out, err := c.exec(ctx, true, bin, args...); err != nil {
		return fmt.Errorf("failed to close %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}

	return nil
}

func (c *Client) closeArgs(name string) (string, []string) {
	target := c.Resolve(name)

	switch c.goos {
	case "windows":
		if !strings.HasSuffix(target, ".exe") {
			target += ".exe"
		}
		return "taskkill", []string{"/IM", target, "/F"}
	case "darwin":
		return "osascript", []string{"-e", fmt.Sprintf("quit app %q", target)}
	default:
		return "pkill", []string{"-f", target}
	}
}

// RunShell runs command through the platform shell and returns its trimmed output.
func (c *Client) RunShell(ctx context.Context, command string) (string, error) {
	var (
		out []byte
		err error
	)

	if c.goos == "windows" {
		out, err = c.exec(ctx, true, "cmd", "/C", command)
	} else {
		out, err = c.exec(ctx, true, "sh", "-c", command)
	}

	output := strings.TrimSpace(string(out))
	if err != nil {
		return output, fmt.Errorf("command failed: %w", err)
	}

	return output, nil
}

func (c *Client) VolumeUp(ctx context.Context) error {
	return c.volume(ctx, "up")
}

func (c *Client) VolumeDown(ctx context.Context) error {
	return c.volume(ctx, "down")
}

func (c *Client) Mute(ctx context.Context) error {
	return c.volume(ctx, "mute")
}

func (c *Client) volume(ctx context.Context, action string) error {
	name, args, err := volumeCommand(c.goos, action)
	if err != nil {
		return err
	}

	if out, err := c.exec(ctx, true, name, args...); err != nil {
		return fmt.Errorf("volume %s: %w: %s", action, err, strings.TrimSpace(string(out)))
	}

	return nil
}

func volumeCommand(goos, action string) (string, []string, error) {
	switch goos {
	case "windows":
		key := map[string]int{"up": 175, "down": 174, "mute": 173}[action]
		script := fmt.Sprintf("$w = New-Object -ComObject WScript.Shell; 1..5 | ForEach-Object { $w.SendKeys([char]%d) }", key)
		if action == "mute" {
			script = fmt.Sprintf("(New-Object -ComObject WScript.Shell).SendKeys([char]%d)", key)
		}
		return "powershell", []string{"-NoProfile", "-Command", script}, nil

	case "darwin":
		script := map[string]string{
			"up":   "set volume output volume ((output volume of (get volume settings)) + 10)",
			"down": "set volume output volume ((output volume of (get volume settings)) - 10)",
			"mute": "set volume output muted true",
		}[action]
		return "osascript", []string{"-e", script}, nil

	case "linux":
		switch action {
		case "up":
			return "pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", "+10%"}, nil
		case "down":
			return "pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", "-10%"}, nil
		default:
			return "pactl", []string{"set-sink-mute", "@DEFAULT_SINK@", "toggle"}, nil
		}
	}

	return "", nil, fmt.Errorf("volume control: %w", ErrUnsupported)
}

func isURL(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
