// Package config provides configuration loading for Leaf using TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Display settings
type Display struct {
	TextWidth    int  `toml:"textWidth"`    // Maximum text column width; the terminal may be narrower
	Seamless     bool `toml:"seamless"`     // Merge all chapters into one continuous scroll
	ShowProgress bool `toml:"showProgress"` // Show reading percentage in the status line
}

// External programs the reader shells out to.
type External struct {
	DictCommand string `toml:"dictCommand"` // e.g. "sdcv" or "dict"; word is appended
	ImageViewer string `toml:"imageViewer"` // image path is appended
	TTSCommand  string `toml:"ttsCommand"`  // sentences are written to stdin
}

// Logging settings. The reader owns the terminal, so logs only ever go to a
// file.
type Logging struct {
	Level string `toml:"level"` // "none", "normal" or "debug"
	File  string `toml:"file"`  // empty = <data dir>/leaf.log
}

// Keybindings configuration
type Keybindings struct {
	// Navigation
	Quit          string `toml:"quit"`
	ScrollDown    string `toml:"scrollDown"`
	ScrollUp      string `toml:"scrollUp"`
	PageDown      string `toml:"pageDown"`
	PageUp        string `toml:"pageUp"`
	HalfPageDown  string `toml:"halfPageDown"`
	HalfPageUp    string `toml:"halfPageUp"`
	ChapterTop    string `toml:"chapterTop"`
	ChapterBottom string `toml:"chapterBottom"`
	NextChapter   string `toml:"nextChapter"`
	PrevChapter   string `toml:"prevChapter"`

	// Overlays
	TableOfContents string `toml:"tableOfContents"`
	Metadata        string `toml:"metadata"`
	Help            string `toml:"help"`

	// Actions
	Find          string `toml:"find"`
	FindNext      string `toml:"findNext"`
	FindPrev      string `toml:"findPrev"`
	OpenImage     string `toml:"openImage"`
	DefineWord    string `toml:"defineWord"`
	AddBookmark   string `toml:"addBookmark"`
	ShowBookmarks string `toml:"showBookmarks"`
	ToggleTTS     string `toml:"toggleTTS"`
	WidenText     string `toml:"widenText"`
	NarrowText    string `toml:"narrowText"`
}

// Config is the main configuration struct
type Config struct {
	Display     Display     `toml:"display"`
	External    External    `toml:"external"`
	Logging     Logging     `toml:"logging"`
	Keybindings Keybindings `toml:"keybindings"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Display: Display{
			TextWidth:    80,
			Seamless:     false,
			ShowProgress: true,
		},
		External: External{
			DictCommand: "",
			ImageViewer: "xdg-open",
			TTSCommand:  "",
		},
		Logging: Logging{
			Level: "none",
		},
		Keybindings: Keybindings{
			Quit:            "q",
			ScrollDown:      "j",
			ScrollUp:        "k",
			PageDown:        " ",
			PageUp:          "b",
			HalfPageDown:    "d",
			HalfPageUp:      "u",
			ChapterTop:      "g",
			ChapterBottom:   "G",
			NextChapter:     "n",
			PrevChapter:     "p",
			TableOfContents: "t",
			Metadata:        "m",
			Help:            "?",
			Find:            "/",
			FindNext:        "N",
			FindPrev:        "P",
			OpenImage:       "o",
			DefineWord:      "D",
			AddBookmark:     "B",
			ShowBookmarks:   "'",
			ToggleTTS:       "!",
			WidenText:       "+",
			NarrowText:      "-",
		},
	}
}

// configDir returns the configuration directory path.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "leaf"), nil
}

// ConfigPath returns the path to the user's config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory holding the reading-state database and log
// file, creating it if needed.
func DataDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Load loads configuration, layering user config on top of defaults.
// Returns the default config if no user config exists.
func Load() (*Config, error) {
	cfg := Default()

	configPath, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads a specific TOML config file layered on top of defaults.
func LoadFile(path string) (*Config, error) {
	var user Config
	if _, err := toml.DecodeFile(path, &user); err != nil {
		return nil, fmt.Errorf("parsing config TOML %s: %w", path, err)
	}
	return merge(Default(), &user), nil
}

// merge layers user config on top of defaults.
// Only non-zero values from user config override defaults.
func merge(defaults, user *Config) *Config {
	result := *defaults

	if user.Display.TextWidth != 0 {
		result.Display.TextWidth = user.Display.TextWidth
	}
	if user.Display.Seamless {
		result.Display.Seamless = true
	}

	if user.External.DictCommand != "" {
		result.External.DictCommand = user.External.DictCommand
	}
	if user.External.ImageViewer != "" {
		result.External.ImageViewer = user.External.ImageViewer
	}
	if user.External.TTSCommand != "" {
		result.External.TTSCommand = user.External.TTSCommand
	}

	if user.Logging.Level != "" {
		result.Logging.Level = user.Logging.Level
	}
	if user.Logging.File != "" {
		result.Logging.File = user.Logging.File
	}

	mergeKeybinding(&result.Keybindings.Quit, user.Keybindings.Quit)
	mergeKeybinding(&result.Keybindings.ScrollDown, user.Keybindings.ScrollDown)
	mergeKeybinding(&result.Keybindings.ScrollUp, user.Keybindings.ScrollUp)
	mergeKeybinding(&result.Keybindings.PageDown, user.Keybindings.PageDown)
	mergeKeybinding(&result.Keybindings.PageUp, user.Keybindings.PageUp)
	mergeKeybinding(&result.Keybindings.HalfPageDown, user.Keybindings.HalfPageDown)
	mergeKeybinding(&result.Keybindings.HalfPageUp, user.Keybindings.HalfPageUp)
	mergeKeybinding(&result.Keybindings.ChapterTop, user.Keybindings.ChapterTop)
	mergeKeybinding(&result.Keybindings.ChapterBottom, user.Keybindings.ChapterBottom)
	mergeKeybinding(&result.Keybindings.NextChapter, user.Keybindings.NextChapter)
	mergeKeybinding(&result.Keybindings.PrevChapter, user.Keybindings.PrevChapter)
	mergeKeybinding(&result.Keybindings.TableOfContents, user.Keybindings.TableOfContents)
	mergeKeybinding(&result.Keybindings.Metadata, user.Keybindings.Metadata)
	mergeKeybinding(&result.Keybindings.Help, user.Keybindings.Help)
	mergeKeybinding(&result.Keybindings.Find, user.Keybindings.Find)
	mergeKeybinding(&result.Keybindings.FindNext, user.Keybindings.FindNext)
	mergeKeybinding(&result.Keybindings.FindPrev, user.Keybindings.FindPrev)
	mergeKeybinding(&result.Keybindings.OpenImage, user.Keybindings.OpenImage)
	mergeKeybinding(&result.Keybindings.DefineWord, user.Keybindings.DefineWord)
	mergeKeybinding(&result.Keybindings.AddBookmark, user.Keybindings.AddBookmark)
	mergeKeybinding(&result.Keybindings.ShowBookmarks, user.Keybindings.ShowBookmarks)
	mergeKeybinding(&result.Keybindings.ToggleTTS, user.Keybindings.ToggleTTS)
	mergeKeybinding(&result.Keybindings.WidenText, user.Keybindings.WidenText)
	mergeKeybinding(&result.Keybindings.NarrowText, user.Keybindings.NarrowText)

	return &result
}

func mergeKeybinding(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// DefaultTOML returns the default configuration as a TOML string.
// Used for --init-config to generate a user config file.
func DefaultTOML() string {
	return `# Leaf configuration
# Save to ~/.config/leaf/config.toml and customize
# Only include settings you want to change from defaults

# Display settings
[display]
textWidth = 80         # Maximum text column width
seamless = false       # Merge all chapters into one continuous scroll
showProgress = true    # Show reading percentage in the status line

# External programs
[external]
dictCommand = ""       # e.g. "sdcv" or "dict"; the word is appended
imageViewer = "xdg-open"
ttsCommand = ""        # e.g. "pico2wave"; sentences are written to stdin

# Logging (file only; the reader owns the terminal)
[logging]
level = "none"         # "none", "normal" or "debug"
file = ""              # empty = ~/.config/leaf/leaf.log

# Keybindings - customize your keys here!
[keybindings]
quit = "q"
scrollDown = "j"
scrollUp = "k"
pageDown = " "
pageUp = "b"
halfPageDown = "d"
halfPageUp = "u"
chapterTop = "g"
chapterBottom = "G"
nextChapter = "n"
prevChapter = "p"
tableOfContents = "t"
metadata = "m"
help = "?"
find = "/"
findNext = "N"
findPrev = "P"
openImage = "o"
defineWord = "D"
addBookmark = "B"
showBookmarks = "'"
toggleTTS = "!"
widenText = "+"
narrowText = "-"
`
}

// MatchSingle is a simple helper for single-char bindings.
func MatchSingle(input byte, binding string) bool {
	return len(binding) == 1 && input == binding[0]
}
