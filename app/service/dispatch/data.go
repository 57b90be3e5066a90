package dispatch

import (
	"context"
	"eleven/app/client/sysinfo"
	"eleven/app/service/safety"
)

// Result is what the assistant says after handling an intent.
// A non-nil Followup means the assistant asks Followup.Prompt and waits for a reply.
type Result struct {
	Speech   string
	Followup *Followup
}

type Followup struct {
	Prompt string
	// Resolve handles the reply. An empty reply means the user said nothing.
	Resolve func(ctx context.Context, reply string) Result
}

func say(text string) Result {
	return Result{Speech: text}
}

type OS interface {
	OpenApp(ctx context.Context, name string) error
	OpenURL(ctx context.Context, url string) error
	OpenPath(ctx context.Context, path string) error
	CloseApp(ctx context.Context, name string) error
	RunShell(ctx context.Context, command string) (string, error)
	VolumeUp(ctx context.Context) error
	VolumeDown(ctx context.Context) error
	Mute(ctx context.Context) error
}

type Folders interface {
	Query(ctx context.Context, name string, limit int) ([]string, error)
	FindFile(ctx context.Context, name string) (string, error)
}

type Gate interface {
	Validate(command string) safety.Verdict
}

type Assistant interface {
	Generate(ctx context.Context, prompt, contextText string) string
	GenerateVision(ctx context.Context, prompt string, image []byte, mime string) string
	RebuildPrompt() error
	ResetChat(ctx context.Context) error
}

type Screen interface {
	Capture(ctx context.Context) ([]byte, error)
}

type System interface {
	Status(ctx context.Context) (sysinfo.Status, error)
}
