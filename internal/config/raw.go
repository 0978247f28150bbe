package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawScreen struct {
	Width  *int `yaml:"width"`
	Height *int `yaml:"height"`
}

type RawScreenshot struct {
	Dir              *string `yaml:"dir"`
	CopyToClipboard  *bool   `yaml:"copy_to_clipboard"`
	SaveToFile       *bool   `yaml:"save_to_file"`
	ShowNotification *bool   `yaml:"show_notification"`
}

type RawNotifications struct {
	MaxVisible     *int           `yaml:"max_visible"`
	MaxHistory     *int           `yaml:"max_history"`
	DefaultTimeout *time.Duration `yaml:"default_timeout"`
	HistoryFile    *string        `yaml:"history_file"`
}

type RawLock struct {
	AuthCommand *string        `yaml:"auth_command"`
	AuthTimeout *time.Duration `yaml:"auth_timeout"`
	UserName    *string        `yaml:"user_name"`
	Avatar      *string        `yaml:"avatar"`
}

// RawConfig mirrors Config with every field optional, so that a file only
// overrides what it names.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	LogLevel          *string           `yaml:"log_level"`
	IdleTimeout       *time.Duration    `yaml:"idle_timeout"`
	PanelHeight       *int              `yaml:"panel_height"`
	SnapThreshold     *int              `yaml:"snap_threshold"`
	Screen            *RawScreen        `yaml:"screen"`
	Display           *string           `yaml:"display"`
	PreferredTerminal *string           `yaml:"preferred_terminal"`
	FileManager       *string           `yaml:"file_manager"`
	Apps              map[string]string `yaml:"apps"`
	Screenshot        *RawScreenshot    `yaml:"screenshot"`
	Notifications     *RawNotifications `yaml:"notifications"`
	Lock              *RawLock          `yaml:"lock"`
	Fonts             []string          `yaml:"fonts"`
}

// merge returns c with every field set in overlay replacing its value. Maps
// merge key by key; lists replace.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.IdleTimeout != nil {
		out.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.PanelHeight != nil {
		out.PanelHeight = overlay.PanelHeight
	}
	if overlay.SnapThreshold != nil {
		out.SnapThreshold = overlay.SnapThreshold
	}
	if overlay.Screen != nil {
		merged := mergeRawScreen(out.Screen, *overlay.Screen)
		out.Screen = &merged
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.PreferredTerminal != nil {
		out.PreferredTerminal = overlay.PreferredTerminal
	}
	if overlay.FileManager != nil {
		out.FileManager = overlay.FileManager
	}
	if overlay.Apps != nil {
		out.Apps = mergeStringMap(out.Apps, overlay.Apps)
	}
	if overlay.Screenshot != nil {
		merged := mergeRawScreenshot(out.Screenshot, *overlay.Screenshot)
		out.Screenshot = &merged
	}
	if overlay.Notifications != nil {
		merged := mergeRawNotifications(out.Notifications, *overlay.Notifications)
		out.Notifications = &merged
	}
	if overlay.Lock != nil {
		merged := mergeRawLock(out.Lock, *overlay.Lock)
		out.Lock = &merged
	}
	if overlay.Fonts != nil {
		out.Fonts = append([]string(nil), overlay.Fonts...)
	}

	return out
}

func mergeRawScreen(base *RawScreen, overlay RawScreen) RawScreen {
	var out RawScreen
	if base != nil {
		out = *base
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	return out
}

func mergeRawScreenshot(base *RawScreenshot, overlay RawScreenshot) RawScreenshot {
	var out RawScreenshot
	if base != nil {
		out = *base
	}
	if overlay.Dir != nil {
		out.Dir = overlay.Dir
	}
	if overlay.CopyToClipboard != nil {
		out.CopyToClipboard = overlay.CopyToClipboard
	}
	if overlay.SaveToFile != nil {
		out.SaveToFile = overlay.SaveToFile
	}
	if overlay.ShowNotification != nil {
		out.ShowNotification = overlay.ShowNotification
	}
	return out
}

func mergeRawNotifications(base *RawNotifications, overlay RawNotifications) RawNotifications {
	var out RawNotifications
	if base != nil {
		out = *base
	}
	if overlay.MaxVisible != nil {
		out.MaxVisible = overlay.MaxVisible
	}
	if overlay.MaxHistory != nil {
		out.MaxHistory = overlay.MaxHistory
	}
	if overlay.DefaultTimeout != nil {
		out.DefaultTimeout = overlay.DefaultTimeout
	}
	if overlay.HistoryFile != nil {
		out.HistoryFile = overlay.HistoryFile
	}
	return out
}

func mergeRawLock(base *RawLock, overlay RawLock) RawLock {
	var out RawLock
	if base != nil {
		out = *base
	}
	if overlay.AuthCommand != nil {
		out.AuthCommand = overlay.AuthCommand
	}
	if overlay.AuthTimeout != nil {
		out.AuthTimeout = overlay.AuthTimeout
	}
	if overlay.UserName != nil {
		out.UserName = overlay.UserName
	}
	if overlay.Avatar != nil {
		out.Avatar = overlay.Avatar
	}
	return out
}
