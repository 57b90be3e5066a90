package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Assistant    Assistant    `yaml:"assistant"`
	Personality  Personality  `yaml:"personality"`
	Log          Log          `yaml:"log"`
	Storage      Storage      `yaml:"storage"`
	LLM          LLM          `yaml:"llm"`
	Speech       Speech       `yaml:"speech"`
	Interrupt    Interrupt    `yaml:"interrupt"`
	Conversation Conversation `yaml:"conversation"`
	Safety       Safety       `yaml:"safety"`
	FolderIndex  FolderIndex  `yaml:"folder_index"`
	OS           OS           `yaml:"os"`
	Screen       Screen       `yaml:"screen"`
	GUI          GUI          `yaml:"gui"`
}

type Assistant struct {
	// Name the assistant answers to
	Name string `yaml:"name" example:"ELEVEN" validate:"required"`
	// Response language
	Language string `yaml:"language" example:"es-ES" validate:"required,oneof=es-ES en-US"`
	// Voice identity passed to the speech engine
	Voice string `yaml:"voice" example:"es-ES-AlvaroNeural"`
}

type Log struct {
	// Minimum console level: debug, info, warn, error
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Directory for daily log files, empty disables file logging
	Dir string `yaml:"dir" example:"logs"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type Storage struct {
	// SQLite database file shared by the folder index and conversation memory
	Path string `yaml:"path" example:"data/eleven.db" validate:"required"`
}

type LLM struct {
	// Backend: gemini or openai
	Provider string `yaml:"provider" example:"gemini" validate:"required,oneof=gemini openai"`
	// API key, usually taken from GEMINI_API_KEY / OPENAI_API_KEY
	APIKey string `yaml:"api_key"`
	// Base URL for OpenAI-compatible backends
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1"`
	// SOCKS5 proxy address for LLM traffic
	Proxy string `yaml:"proxy" example:"127.0.0.1:1080"`
	// Ordered model endpoints, rotated on quota errors
	Endpoints []string `yaml:"endpoints" validate:"required,min=1,dive,required"`
	// Attempts per call, including the first one
	MaxAttempts int `yaml:"max_attempts" example:"3" validate:"min=1,max=10"`
	// Backoff between attempts: none or fixed
	Backoff string `yaml:"backoff" example:"none" validate:"oneof=none fixed"`
	// Delay for the fixed backoff
	BackoffDelay time.Duration `yaml:"backoff_delay" example:"1s"`
	// Per-request timeout
	Timeout time.Duration `yaml:"timeout" example:"30s"`
	// Turns of history kept in the chat session
	HistorySize int `yaml:"history_size" example:"20" validate:"min=0"`
}

type Speech struct {
	// Transcriber: console or speechkit
	Engine string `yaml:"engine" example:"console" validate:"oneof=console speechkit"`
	// Speaker: console or command
	TTS string `yaml:"tts" example:"command" validate:"oneof=console command"`
	// External TTS command, the text is appended as the last argument
	TTSCommand []string `yaml:"tts_command" example:"[espeak-ng, -v, es]"`
	// Yandex service account key file
	ServiceAccountKey string `yaml:"service_account_key" example:"service-account-key.json"`
	// SpeechKit recognition model
	RecognitionModel string `yaml:"recognition_model" example:"general"`
	// Silence that ends a recognized phrase
	EndOfPhrase time.Duration `yaml:"end_of_phrase" example:"700ms"`
	// ffmpeg input format for microphone capture, e.g. pulse, alsa, avfoundation, dshow
	InputFormat string `yaml:"input_format" example:"pulse"`
	// ffmpeg input device
	InputDevice string `yaml:"input_device" example:"default"`
	// Command listen timeout
	ListenTimeout time.Duration `yaml:"listen_timeout" example:"5s"`
	// Command phrase limit
	PhraseLimit time.Duration `yaml:"phrase_limit" example:"10s"`
	// Wake phrase listen timeout
	WakeTimeout time.Duration `yaml:"wake_timeout" example:"3s"`
	// Wake phrase limit
	WakePhraseLimit time.Duration `yaml:"wake_phrase_limit" example:"2s"`
}

type Interrupt struct {
	// Disable to make responses uninterruptible
	Disabled bool `yaml:"disabled"`
	// Poll interval while speaking
	PollInterval time.Duration `yaml:"poll_interval" example:"100ms"`
	// Listen timeout for each poll
	ListenTimeout time.Duration `yaml:"listen_timeout" example:"300ms"`
	// Phrase limit for each poll
	PhraseLimit time.Duration `yaml:"phrase_limit" example:"2s"`
	// Bounded wait for the monitor after speech ends
	Grace time.Duration `yaml:"grace" example:"500ms"`
}

type Conversation struct {
	// Return to dormant after this much inactivity, 0 keeps the session open
	IdleTimeout time.Duration `yaml:"idle_timeout" example:"0s"`
}

type Safety struct {
	// Ask before running sensitive commands
	SafeMode bool `yaml:"safe_mode" example:"true"`
	// Patterns that are always blocked
	Forbidden []string `yaml:"forbidden"`
	// Patterns that need confirmation in safe mode
	Sensitive []string `yaml:"sensitive"`
	// Shell command timeout
	CommandTimeout time.Duration `yaml:"command_timeout" example:"30s"`
}

type FolderIndex struct {
	// Roots to index, the home directory when empty
	Roots []string `yaml:"roots"`
	// Directory names skipped while walking
	Excluded []string `yaml:"excluded"`
	// Maximum walk depth below each root
	MaxDepth int `yaml:"max_depth" example:"5" validate:"min=1,max=32"`
	// Periodic rescan interval
	Interval time.Duration `yaml:"interval" example:"30m"`
	// Maximum number of query results
	QueryLimit int `yaml:"query_limit" example:"10" validate:"min=1"`
	// Rescan at startup when the index is empty
	ScanOnStart bool `yaml:"scan_on_start" example:"true"`
	// Watch roots for directory changes
	Watch bool `yaml:"watch" example:"false"`
	// Quiet period before a watched change triggers a rescan
	WatchDebounce time.Duration `yaml:"watch_debounce" example:"10s"`
}

type OS struct {
	// Extra application aliases, spoken name -> executable
	AppAliases map[string]string `yaml:"app_aliases"`
}

type Screen struct {
	// Capture command, {file} is replaced by the output path
	CaptureCommand []string `yaml:"capture_command" example:"[gnome-screenshot, -f, {file}]"`
}

type GUI struct {
	// Settings panel listen address
	Listen string `yaml:"listen" example:"127.0.0.1:8765" validate:"required"`
}

// Load reads the YAML config at path, applies defaults and environment overrides, and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	result := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.In("config").Errorf("failed to read config file: %w", err)
	}

	if err == nil {
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.In("config").Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyDefaults(&result)
	applyEnv(&result)
	result.Personality.clamp()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(result); err != nil {
		return nil, oops.In("config").Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

// LoadEnv loads key=value pairs from an optional dotenv file into the process environment.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.In("config").Errorf("failed to load env file: %w", err)
	}

	return nil
}

func Default() Config {
	return Config{
		Assistant: Assistant{
			Name:     "ELEVEN",
			Language: "es-ES",
			Voice:    "es-ES-AlvaroNeural",
		},
		Personality: Personality{
			Humor:           50,
			Sarcasm:         20,
			Sincerity:       100,
			Professionalism: 80,
		},
		Log: Log{
			Level: "info",
			Dir:   "logs",
		},
		Storage: Storage{
			Path: "data/eleven.db",
		},
		LLM: LLM{
			Provider: "gemini",
			Endpoints: []string{
				"gemini-2.0-flash",
				"gemini-2.0-flash-lite",
				"gemini-pro-latest",
				"gemini-1.5-flash",
				"gemini-1.5-pro",
			},
			MaxAttempts:  3,
			Backoff:      "none",
			BackoffDelay: time.Second,
			Timeout:      30 * time.Second,
			HistorySize:  20,
		},
		Speech: Speech{
			Engine:            "console",
			TTS:               "console",
			TTSCommand:        []string{"espeak-ng", "-v", "es"},
			ServiceAccountKey: "service-account-key.json",
			RecognitionModel:  "general",
			EndOfPhrase:       700 * time.Millisecond,
			InputDevice:       "default",
			ListenTimeout:     5 * time.Second,
			PhraseLimit:       10 * time.Second,
			WakeTimeout:       3 * time.Second,
			WakePhraseLimit:   2 * time.Second,
		},
		Interrupt: Interrupt{
			PollInterval:  100 * time.Millisecond,
			ListenTimeout: 300 * time.Millisecond,
			PhraseLimit:   2 * time.Second,
			Grace:         500 * time.Millisecond,
		},
		Safety: Safety{
			SafeMode: true,
			Forbidden: []string{
				"rm -rf", "format", "del /s", "rd /s", "shutdown",
				"restart-computer", "mkfs", "dd", ":(){ :|:& };:",
			},
			Sensitive: []string{
				"del", "rm", "move", "install", "pip install",
				"npm install", "kill", "taskkill", "reg", "net user",
			},
			CommandTimeout: 30 * time.Second,
		},
		FolderIndex: FolderIndex{
			Excluded: []string{
				"windows", "program files", "program files (x86)", "appdata",
				"application data", "$recycle.bin", "system volume information",
			},
			MaxDepth:      5,
			Interval:      30 * time.Minute,
			QueryLimit:    10,
			ScanOnStart:   true,
			WatchDebounce: 10 * time.Second,
		},
		GUI: GUI{
			Listen: "127.0.0.1:8765",
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = def.LLM.MaxAttempts
	}
	if cfg.LLM.Backoff == "" {
		cfg.LLM.Backoff = def.LLM.Backoff
	}
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = def.LLM.Timeout
	}
	if cfg.Speech.RecognitionModel == "" {
		cfg.Speech.RecognitionModel = def.Speech.RecognitionModel
	}
	if cfg.Speech.EndOfPhrase <= 0 {
		cfg.Speech.EndOfPhrase = def.Speech.EndOfPhrase
	}
	if cfg.Speech.ListenTimeout <= 0 {
		cfg.Speech.ListenTimeout = def.Speech.ListenTimeout
	}
	if cfg.Speech.PhraseLimit <= 0 {
		cfg.Speech.PhraseLimit = def.Speech.PhraseLimit
	}
	if cfg.Speech.WakeTimeout <= 0 {
		cfg.Speech.WakeTimeout = def.Speech.WakeTimeout
	}
	if cfg.Speech.WakePhraseLimit <= 0 {
		cfg.Speech.WakePhraseLimit = def.Speech.WakePhraseLimit
	}
	if cfg.Interrupt.PollInterval <= 0 {
		cfg.Interrupt.PollInterval = def.Interrupt.PollInterval
	}
	if cfg.Interrupt.ListenTimeout <= 0 {
		cfg.Interrupt.ListenTimeout = def.Interrupt.ListenTimeout
	}
	if cfg.Interrupt.PhraseLimit <= 0 {
		cfg.Interrupt.PhraseLimit = def.Interrupt.PhraseLimit
	}
	if cfg.Interrupt.Grace <= 0 {
		cfg.Interrupt.Grace = def.Interrupt.Grace
	}
	if cfg.Safety.CommandTimeout <= 0 {
		cfg.Safety.CommandTimeout = def.Safety.CommandTimeout
	}
	if cfg.FolderIndex.Interval <= 0 {
		cfg.FolderIndex.Interval = def.FolderIndex.Interval
	}
	if cfg.FolderIndex.WatchDebounce <= 0 {
		cfg.FolderIndex.WatchDebounce = def.FolderIndex.WatchDebounce
	}
}

func applyEnv(cfg *Config) {
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if lang := strings.TrimSpace(os.Getenv("ELEVEN_LANGUAGE")); lang != "" {
		cfg.Assistant.Language = lang
	}

	if raw := strings.TrimSpace(os.Getenv("ELEVEN_SAFE_MODE")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.Safety.SafeMode = v
		}
	}
}
