package dispatch

import (
	"context"
	"eleven/app/client/osctl"
	"eleven/app/client/screen"
	"eleven/app/client/sysinfo"
	"eleven/app/config"
	"eleven/app/locale"
	"eleven/app/service/audio"
	"eleven/app/service/folderindex"
	"eleven/app/service/intent"
	"eleven/app/service/llm"
	"eleven/app/service/safety"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const (
	maxOptions      = 5
	maxSpokenOutput = 200
)

// Service turns resolved intents into actions and the reply to speak.
type Service struct {
	cfg       *config.Store
	os        OS
	folders   Folders
	gate      Gate
	assistant Assistant
	screen    Screen
	system    System
	speaker   audio.Speaker
	home      string
}

func New(di *do.Injector) (*Service, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	return NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*osctl.Client](di),
		do.MustInvoke[*folderindex.Service](di),
		do.MustInvoke[*safety.Service](di),
		do.MustInvoke[*llm.Service](di),
		do.MustInvoke[*screen.Capturer](di),
		do.MustInvoke[*sysinfo.Client](di),
		do.MustInvoke[audio.Speaker](di),
		home,
	), nil
}

func NewService(
	cfg *config.Store,
	osc OS,
	folders Folders,
	gate Gate,
	assistant Assistant,
	scr Screen,
	system System,
	speaker audio.Speaker,
	home string,
) *Service {
	return &Service{
		cfg:       cfg,
		os:        osc,
		folders:   folders,
		gate:      gate,
		assistant: assistant,
		screen:    scr,
		system:    system,
		speaker:   speaker,
		home:      home,
	}
}

func (s *Service) lang() string {
	return s.cfg.Get().Assistant.Language
}

func (s *Service) text(key locale.Key, args ...any) string {
	return locale.Text(s.lang(), key, args...)
}

// Dispatch handles one intent. text is the utterance it was resolved from.
func (s *Service) Dispatch(ctx context.Context, text string, in intent.Intent) Result {
	switch v := in.(type) {
	case intent.Chat:
		return say(s.assistant.Generate(ctx, text, s.chatContext(ctx)))
	case intent.ConfigChange:
		return s.setTrait(ctx, v.Trait, v.Value)
	case intent.Command:
		slog.Info("Dispatching command",
			"command", v.Name,
			"parameters", v.Parameters,
			"keyword", v.Keyword,
			"confidence", v.Confidence)
		return s.command(ctx, text, v)
	}

	slog.Error("Unhandled intent", "intent", fmt.Sprintf("%T", in))
	return say(s.text(locale.ErrorGeneric))
}

func (s *Service) command(ctx context.Context, text string, cmd intent.Command) Result {
	params := strings.TrimSpace(cmd.Parameters)

	switch cmd.Name {
	case intent.OpenApp:
		return s.openApp(ctx, params)
	case intent.CloseApp:
		return s.closeApp(ctx, params)
	case intent.OpenFolder, intent.SearchFolder:
		return s.openFolder(ctx, params)
	case intent.CreateFolder:
		return s.createFolder(ctx, params)
	case intent.OpenFile:
		return s.openFile(ctx, params)
	case intent.SearchWeb:
		return s.searchWeb(ctx, params)
	case intent.PlayMedia:
		return s.playMedia(ctx, params)
	case intent.Volume:
		return s.volume(ctx, params)
	case intent.SystemInfo:
		return s.systemInfo(ctx)
	case intent.AnalyzeScreen:
		return s.analyzeScreen(ctx, params)
	case intent.RunCommand:
		return s.runGated(ctx, params)
	case intent.Configure:
		return s.configure(ctx, params)
	}

	slog.Warn("Unknown command, answering as chat", "command", cmd.Name)
	return say(s.assistant.Generate(ctx, text, s.chatContext(ctx)))
}

func (s *Service) openApp(ctx context.Context, name string) Result {
	if name == "" {
		return say(s.text(locale.MissingTarget))
	}

	if err := s.os.OpenApp(ctx, name); err != nil {
		slog.Warn("Failed to open application", "name", name, "error", err)
		return say(s.text(locale.OpenFailed, name))
	}

	return say(s.text(locale.Opening, name))
}

func (s *Service) closeApp(ctx context.Context, name string) Result {
	if name == "" {
		return say(s.text(locale.MissingTarget))
	}

	if err := s.os.CloseApp(ctx, name); err != nil {
		slog.Warn("Failed to close application", "name", name, "error", err)
		return say(s.text(locale.CommandFailed))
	}

	return say(s.text(locale.Closing, name))
}

func (s *Service) openFolder(ctx context.Context, name string) Result {
	if name == "" {
		return say(s.text(locale.MissingTarget))
	}

	matches, err := s.folders.Query(ctx, name, 0)
	if err != nil {
		slog.Error("Folder query failed", "name", name, "error", err)
		return say(s.text(locale.ErrorGeneric))
	}

	switch len(matches) {
	case 0:
		return say(s.text(locale.FolderNotFound, name))
	case 1:
		return s.openPath(ctx, matches[0], locale.OpeningFolder)
	}

	options := pie.Top(matches, maxOptions)

	lines := []string{s.text(locale.FolderFound, len(matches), name)}
	for i, path := range options {
		lines = append(lines, s.text(locale.OptionPrefix, i+1, filepath.Base(path), filepath.Base(filepath.Dir(path))))
	}

	return Result{
		Speech: strings.Join(lines, " "),
		Followup: &Followup{
			Prompt: s.text(locale.AskSelection),
			Resolve: func(ctx context.Context, reply string) Result {
				if strings.TrimSpace(reply) == "" {
					return say(s.text(locale.NoSelection))
				}

				choice, ok := s.ordinal(reply)
				if !ok || choice < 1 || choice > len(options) {
					return say(s.text(locale.InvalidSelection))
				}

				return s.openPath(ctx, options[choice-1], locale.OpeningFolder)
			},
		},
	}
}

// ordinal reads the first digit or number word in reply.
func (s *Service) ordinal(reply string) (int, bool) {
	for _, word := range strings.Fields(locale.Normalize(reply)) {
		if n, err := strconv.Atoi(word); err == nil {
			return n, true
		}
		if n, ok := locale.Number(s.lang(), word); ok {
			return n, true
		}
	}

	return 0, false
}

func (s *Service) openPath(ctx context.Context, path string, key locale.Key) Result {
	name := filepath.Base(path)

	if err := s.os.OpenPath(ctx, path); err != nil {
		slog.Warn("Failed to open path", "path", path, "error", err)
		return say(s.text(locale.OpenFailed, name))
	}

	return say(s.text(key, name))
}

func (s *Service) openFile(ctx context.Context, name string) Result {
	if name == "" {
		return say(s.text(locale.MissingTarget))
	}

	path, err := s.folders.FindFile(ctx, name)
	if err != nil {
		slog.Error("File search failed", "name", name, "error", err)
		return say(s.text(locale.ErrorGeneric))
	}
	if path == "" {
		return say(s.text(locale.FileNotFound, name))
	}

	return s.openPath(ctx, path, locale.OpeningFile)
}

// createFolder handles "name" and "name en location". Without a location the folder goes on the desktop.
func (s *Service) createFolder(ctx context.Context, params string) Result {
	name, location := splitLocation(params)
	if name == "" {
		return say(s.text(locale.MissingTarget))
	}

	parent, err := s.resolveLocation(ctx, location)
	if err != nil {
		slog.Error("Folder location lookup failed", "location", location, "error", err)
		return say(s.text(locale.ErrorGeneric))
	}
	if parent == "" {
		return say(s.text(locale.FolderNotFound, location))
	}

	path := filepath.Join(parent, name)
	if err = os.Mkdir(path, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return say(s.text(locale.FolderExists, name))
		}

		slog.Warn("Failed to create folder", "path", path, "error", err)
		return say(s.text(locale.CreateFailed, name))
	}

	slog.Info("Folder created", "path", path)

	return say(s.text(locale.FolderCreated, filepath.Base(parent)))
}

func splitLocation(params string) (string, string) {
	for _, sep := range []string{" en ", " in "} {
		if i := strings.LastIndex(params, sep); i > 0 {
			return strings.TrimSpace(params[:i]), strings.TrimSpace(params[i+len(sep):])
		}
	}

	return strings.TrimSpace(params), ""
}

func (s *Service) resolveLocation(ctx context.Context, location string) (string, error) {
	if location == "" || pie.Contains([]string{"escritorio", "desktop"}, strings.ToLower(location)) {
		for _, dir := range []string{"Desktop", "Escritorio"} {
			path := filepath.Join(s.home, dir)
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				return path, nil
			}
		}

		return s.home, nil
	}

	matches, err := s.folders.Query(ctx, location, 1)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}

	return matches[0], nil
}

func (s *Service) searchWeb(ctx context.Context, query string) Result {
	if query == "" {
		return say(s.text(locale.MissingTarget))
	}

	if err := s.os.OpenURL(ctx, "https://www.google.com/search?q="+url.QueryEscape(query)); err != nil {
		slog.Warn("Failed to open browser", "error", err)
		return say(s.text(locale.OpenFailed, "Google"))
	}

	return say(s.text(locale.Searching, query))
}

func (s *Service) playMedia(ctx context.Context, query string) Result {
	if query == "" {
		return say(s.text(locale.MissingTarget))
	}

	if err := s.os.OpenURL(ctx, "https://www.youtube.com/results?search_query="+url.QueryEscape(query)); err != nil {
		slog.Warn("Failed to open browser", "error", err)
		return say(s.text(locale.OpenFailed, "YouTube"))
	}

	return say(s.text(locale.Playing, query))
}

func (s *Service) volume(ctx context.Context, direction string) Result {
	var (
		err error
		key locale.Key
	)

	switch intent.VolumeDirection(direction) {
	case "down":
		err, key = s.os.VolumeDown(ctx), locale.VolumeDown
	case "mute":
		err, key = s.os.Mute(ctx), locale.Mute
	default:
		err, key = s.os.VolumeUp(ctx), locale.VolumeUp
	}

	if err != nil {
		slog.Warn("Volume change failed", "direction", direction, "error", err)
		return say(s.text(locale.VolumeFailed))
	}

	return say(s.text(key))
}

func (s *Service) systemInfo(ctx context.Context) Result {
	status, err := s.system.Status(ctx)
	if err != nil {
		slog.Warn("Failed to read system status", "error", err)
		return say(s.text(locale.SystemFailed))
	}

	return say(s.text(locale.SystemStatus, status.CPUPercent, status.MemoryPercent, status.MemoryFreeGB, status.DiskPercent))
}

// chatContext gives the model the current machine status. Empty when it cannot be read.
func (s *Service) chatContext(ctx context.Context) string {
	status, err := s.system.Status(ctx)
	if err != nil {
		slog.Debug("No system context for chat", "error", err)
		return ""
	}

	return s.text(locale.SystemStatus, status.CPUPercent, status.MemoryPercent, status.MemoryFreeGB, status.DiskPercent)
}

func (s *Service) analyzeScreen(ctx context.Context, question string) Result {
	if err := audio.SpeakAndWait(ctx, s.speaker, s.text(locale.AnalyzingScreen)); err != nil {
		slog.Debug("Announcement interrupted", "error", err)
	}

	image, err := s.screen.Capture(ctx)
	if err != nil {
		slog.Warn("Screen capture failed", "error", err)
		return say(s.text(locale.CaptureFailed))
	}

	prompt := question
	if prompt == "" {
		prompt = s.text(locale.VisionPrompt)
	}

	return say(s.assistant.GenerateVision(ctx, prompt, image, screen.MIMEType))
}

func (s *Service) configure(ctx context.Context, params string) Result {
	trait, ok := intent.MatchTrait(params)
	if !ok {
		return say(s.text(locale.PersonalityWhat))
	}

	value, ok := intent.ParsePercentage(params)
	if !ok {
		return say(s.text(locale.PersonalityWhat))
	}

	return s.setTrait(ctx, trait, value)
}

// setTrait stores the new value, rebuilds the persona and starts a fresh conversation with it.
func (s *Service) setTrait(ctx context.Context, trait config.Trait, value int) Result {
	stored, err := s.cfg.SetTrait(trait, value)
	if err != nil {
		slog.Error("Failed to update personality", "trait", trait, "error", err)
		return say(s.text(locale.ErrorGeneric))
	}

	if err = s.assistant.RebuildPrompt(); err != nil {
		slog.Error("Failed to rebuild system prompt", "error", err)
	}

	if err = s.assistant.ResetChat(ctx); err != nil {
		slog.Warn("Failed to reset conversation memory", "error", err)
	}

	slog.Info("Personality updated", "trait", trait, "value", stored)

	return say(s.text(locale.PersonalitySet, locale.TraitName(s.lang(), string(trait)), stored))
}

// runGated checks command with the safety gate. Sensitive commands need a spoken yes first.
func (s *Service) runGated(ctx context.Context, command string) Result {
	if command == "" {
		return say(s.text(locale.MissingTarget))
	}

	verdict := s.gate.Validate(command)

	switch verdict.Level {
	case safety.LevelForbidden:
		slog.Warn("Blocked command", "command", command, "reason", verdict.Reason)
		return say(s.text(locale.CommandBlocked))

	case safety.LevelSensitive:
		slog.Info("Command needs confirmation", "command", command, "reason", verdict.Reason)
		return Result{
			Followup: &Followup{
				Prompt: s.text(locale.CommandConfirm, command),
				Resolve: func(ctx context.Context, reply string) Result {
					if !s.confirmed(reply) {
						return say(s.text(locale.CommandCancelled))
					}
					return s.execute(ctx, command)
				},
			},
		}
	}

	return s.execute(ctx, command)
}

func (s *Service) confirmed(reply string) bool {
	lang := s.lang()

	if _, no := locale.ContainsAny(lang, locale.NoWords, reply); no {
		return false
	}

	_, yes := locale.ContainsAny(lang, locale.YesWords, reply)
	return yes
}

func (s *Service) execute(ctx context.Context, command string) Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Get().Safety.CommandTimeout)
	defer cancel()

	output, err := s.os.RunShell(ctx, command)
	if err != nil {
		slog.Warn("Command failed", "command", command, "output", output, "error", err)
		return say(s.text(locale.CommandFailed))
	}

	slog.Info("Command executed", "command", command)

	if output == "" {
		return say(s.text(locale.CommandDone))
	}

	if runes := []rune(output); len(runes) > maxSpokenOutput {
		output = string(runes[:maxSpokenOutput])
	}

	return say(s.text(locale.CommandOutput, output))
}
