package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ScreenConfig is the size hint for a nested output. Zero means "ask the
// display server".
type ScreenConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type ScreenshotConfig struct {
	// Dir defaults to ~/Pictures/Screenshots.
	Dir              string `yaml:"dir,omitempty"`
	CopyToClipboard  bool   `yaml:"copy_to_clipboard"`
	SaveToFile       bool   `yaml:"save_to_file"`
	ShowNotification bool   `yaml:"show_notification"`
}

type NotificationsConfig struct {
	MaxVisible     int           `yaml:"max_visible"`
	MaxHistory     int           `yaml:"max_history"`
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	// HistoryFile defaults to $XDG_STATE_HOME/deskshell/history.json.zst.
	// "none" disables persistence.
	HistoryFile string `yaml:"history_file,omitempty"`
}

// LockConfig configures the lock screen.
type LockConfig struct {
	// AuthCommand receives the password on stdin; "{user}" in any argument
	// is replaced with the user name. Exit status 0 unlocks.
	AuthCommand string        `yaml:"auth_command,omitempty"`
	AuthTimeout time.Duration `yaml:"auth_timeout"`
	UserName    string        `yaml:"user_name,omitempty"`
	Avatar      string        `yaml:"avatar,omitempty"`
}

const historyDisabled = "none"

type Config struct {
	LogLevel          string              `yaml:"log_level"`
	IdleTimeout       time.Duration       `yaml:"idle_timeout"`
	PanelHeight       int                 `yaml:"panel_height"`
	SnapThreshold     int                 `yaml:"snap_threshold"`
	Screen            ScreenConfig        `yaml:"screen"`
	Display           string              `yaml:"display,omitempty"`
	PreferredTerminal string              `yaml:"preferred_terminal,omitempty"`
	FileManager       string              `yaml:"file_manager,omitempty"`
	Apps              map[string]string   `yaml:"apps"`
	Screenshot        ScreenshotConfig    `yaml:"screenshot"`
	Notifications     NotificationsConfig `yaml:"notifications"`
	Lock              LockConfig          `yaml:"lock"`
	Fonts             []string            `yaml:"fonts,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "info",
		IdleTimeout:   300 * time.Second,
		PanelHeight:   40,
		SnapThreshold: 20,
		Apps:          map[string]string{},
		Screenshot: ScreenshotConfig{
			CopyToClipboard:  true,
			SaveToFile:       true,
			ShowNotification: true,
		},
		Notifications: NotificationsConfig{
			MaxVisible:     5,
			MaxHistory:     50,
			DefaultTimeout: 5 * time.Second,
		},
		Lock: LockConfig{
			AuthTimeout: 5 * time.Second,
		},
	}
}

// HistoryEnabled reports whether dismissed notifications should persist.
func (c *Config) HistoryEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Notifications.HistoryFile), historyDisabled)
}

// AuthArgv splits lock.auth_command into argv. A nil result means no
// command is configured.
func (c *Config) AuthArgv() ([]string, error) {
	if strings.TrimSpace(c.Lock.AuthCommand) == "" {
		return nil, nil
	}
	return splitCommand(c.Lock.AuthCommand)
}

// UserName returns lock.user_name, falling back to $USER.
func (c *Config) UserName() string {
	if name := strings.TrimSpace(c.Lock.UserName); name != "" {
		return name
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "user"
}

// LaunchApps returns the catalog overrides for the launcher: the apps map
// plus the resolved terminal and file manager unless apps names them.
func (c *Config) LaunchApps() map[string]string {
	out := make(map[string]string, len(c.Apps)+2)
	for name, cmd := range c.Apps {
		out[name] = cmd
	}
	if !hasApp(out, "Terminal") {
		if term := c.ResolveTerminal(); term != "" {
			out["Terminal"] = term
		}
	}
	if fm := strings.TrimSpace(c.FileManager); fm != "" && !hasApp(out, "Files") {
		out["Files"] = fm
	}
	return out
}

func hasApp(apps map[string]string, name string) bool {
	for k := range apps {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.PanelHeight < 0 {
		return &ValidationError{Path: "panel_height", Err: fmt.Errorf("panel_height must be >= 0")}
	}
	if c.SnapThreshold < 0 {
		return &ValidationError{Path: "snap_threshold", Err: fmt.Errorf("snap_threshold must be >= 0")}
	}
	if c.Screen.Width < 0 || c.Screen.Height < 0 {
		return &ValidationError{Path: "screen", Err: fmt.Errorf("screen values must be >= 0")}
	}
	if (c.Screen.Width == 0) != (c.Screen.Height == 0) {
		return &ValidationError{Path: "screen", Err: fmt.Errorf("screen needs both width and height")}
	}
	if c.Apps == nil {
		return &ValidationError{Path: "apps", Err: fmt.Errorf("apps must not be null")}
	}
	for name := range c.Apps {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: "apps", Err: fmt.Errorf("apps contains an empty name")}
		}
	}
	if c.Notifications.MaxVisible < 1 {
		return &ValidationError{Path: "notifications.max_visible", Err: fmt.Errorf("max_visible must be >= 1")}
	}
	if c.Notifications.MaxHistory < 0 {
		return &ValidationError{Path: "notifications.max_history", Err: fmt.Errorf("max_history must be >= 0")}
	}
	if c.Notifications.DefaultTimeout < 0 {
		return &ValidationError{Path: "notifications.default_timeout", Err: fmt.Errorf("default_timeout must be >= 0")}
	}
	if c.Lock.AuthTimeout <= 0 {
		return &ValidationError{Path: "lock.auth_timeout", Err: fmt.Errorf("auth_timeout must be > 0")}
	}
	if _, err := c.AuthArgv(); err != nil {
		return &ValidationError{Path: "lock.auth_command", Err: err}
	}

	if warnings := c.validationWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}
	return nil
}

func (c *Config) validationWarnings() []string {
	var warnings []string
	if strings.TrimSpace(c.Lock.AuthCommand) == "" {
		warnings = append(warnings, "lock.auth_command is not set; the lock screen cannot be unlocked")
	}
	if !c.Screenshot.SaveToFile && !c.Screenshot.CopyToClipboard {
		warnings = append(warnings, "screenshot.save_to_file and screenshot.copy_to_clipboard are both off; screenshots are discarded")
	}
	for i, path := range c.Fonts {
		if _, err := os.Stat(expandHome(path)); err != nil {
			warnings = append(warnings, fmt.Sprintf("fonts[%d] %q: %v", i, path, err))
		}
	}
	return warnings
}
