package osctl

// defaultAliases maps spoken application names to a per-OS target.
// Targets starting with http are opened in the browser.
var defaultAliases = map[string]map[string]string{
	"windows": {
		"calculadora":   "calc.exe",
		"calculator":    "calc.exe",
		"bloc de notas": "notepad.exe",
		"notepad":       "notepad.exe",
		"vscode":        "code",
		"code":          "code",
		"chrome":        "chrome",
		"spotify":       "spotify",
		"explorador":    "explorer.exe",
		"explorer":      "explorer.exe",
		"terminal":      "cmd.exe",
	},
	"darwin": {
		"calculadora":   "Calculator",
		"calculator":    "Calculator",
		"bloc de notas": "TextEdit",
		"notepad":       "TextEdit",
		"vscode":        "Visual Studio Code",
		"code":          "Visual Studio Code",
		"chrome":        "Google Chrome",
		"spotify":       "Spotify",
		"explorador":    "Finder",
		"explorer":      "Finder",
		"terminal":      "Terminal",
	},
	"linux": {
		"calculadora":   "gnome-calculator",
		"calculator":    "gnome-calculator",
		"bloc de notas": "gedit",
		"notepad":       "gedit",
		"vscode":        "code",
		"code":          "code",
		"chrome":        "google-chrome",
		"spotify":       "spotify",
		"explorador":    "nautilus",
		"explorer":      "nautilus",
		"terminal":      "x-terminal-emulator",
	},
}

var webAliases = map[string]string{
	"youtube": "https://www.youtube.com",
	"google":  "https://www.google.com",
	"gmail":   "https://mail.google.com",
	"github":  "https://github.com",
}
