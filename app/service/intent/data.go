package intent

import (
	"eleven/app/config"
	"time"
)

type CommandName string

const (
	OpenApp       CommandName = "open_app"
	CloseApp      CommandName = "close_app"
	OpenFolder    CommandName = "open_folder"
	CreateFolder  CommandName = "create_folder"
	SearchFolder  CommandName = "search_folder"
	OpenFile      CommandName = "open_file"
	SearchWeb     CommandName = "search_web"
	PlayMedia     CommandName = "play_media"
	Volume        CommandName = "volume"
	SystemInfo    CommandName = "system_info"
	AnalyzeScreen CommandName = "analyze_screen"
	RunCommand    CommandName = "run_command"
	Configure     CommandName = "configure"
)

var CommandNames = []CommandName{
	OpenApp, CloseApp, OpenFolder, CreateFolder, SearchFolder, OpenFile, SearchWeb,
	PlayMedia, Volume, SystemInfo, AnalyzeScreen, RunCommand, Configure,
}

// Utterance is one recognized phrase. It is resolved exactly once.
type Utterance struct {
	Text      string
	Timestamp time.Time
}

func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Timestamp: time.Now()}
}

// Intent is one of Command, Chat or ConfigChange.
type Intent interface {
	isIntent()
}

type Command struct {
	Name       CommandName
	Parameters string
	// Keyword is the fallback keyword that matched, empty for model results
	Keyword    string
	Confidence float64
}

type Chat struct {
	Confidence float64
}

type ConfigChange struct {
	Trait config.Trait
	Value int
}

func (Command) isIntent()      {}
func (Chat) isIntent()         {}
func (ConfigChange) isIntent() {}

// analysis is the JSON object the model is asked to return.
type analysis struct {
	Type       string  `json:"type"`
	Command    string  `json:"command"`
	Parameters string  `json:"parameters"`
	Confidence float64 `json:"confidence"`
	Trait      string  `json:"trait"`
	Value      *int    `json:"value"`
}
