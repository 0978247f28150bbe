package config

import (
	"fmt"
	"time"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig lays raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	cfg.IdleTimeout = derefDuration(raw.IdleTimeout, cfg.IdleTimeout)
	cfg.PanelHeight = derefInt(raw.PanelHeight, cfg.PanelHeight)
	cfg.SnapThreshold = derefInt(raw.SnapThreshold, cfg.SnapThreshold)
	if raw.Screen != nil {
		cfg.Screen.Width = derefInt(raw.Screen.Width, cfg.Screen.Width)
		cfg.Screen.Height = derefInt(raw.Screen.Height, cfg.Screen.Height)
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.PreferredTerminal != nil {
		cfg.PreferredTerminal = *raw.PreferredTerminal
	}
	if raw.FileManager != nil {
		cfg.FileManager = *raw.FileManager
	}
	if raw.Apps != nil {
		cfg.Apps = mergeStringMap(cfg.Apps, raw.Apps)
	}

	if s := raw.Screenshot; s != nil {
		if s.Dir != nil {
			cfg.Screenshot.Dir = expandHome(*s.Dir)
		}
		cfg.Screenshot.CopyToClipboard = derefBool(s.CopyToClipboard, cfg.Screenshot.CopyToClipboard)
		cfg.Screenshot.SaveToFile = derefBool(s.SaveToFile, cfg.Screenshot.SaveToFile)
		cfg.Screenshot.ShowNotification = derefBool(s.ShowNotification, cfg.Screenshot.ShowNotification)
	}

	if n := raw.Notifications; n != nil {
		cfg.Notifications.MaxVisible = derefInt(n.MaxVisible, cfg.Notifications.MaxVisible)
		cfg.Notifications.MaxHistory = derefInt(n.MaxHistory, cfg.Notifications.MaxHistory)
		cfg.Notifications.DefaultTimeout = derefDuration(n.DefaultTimeout, cfg.Notifications.DefaultTimeout)
		if n.HistoryFile != nil {
			cfg.Notifications.HistoryFile = *n.HistoryFile
			if cfg.HistoryEnabled() {
				cfg.Notifications.HistoryFile = expandHome(*n.HistoryFile)
			}
		}
	}

	if l := raw.Lock; l != nil {
		if l.AuthCommand != nil {
			cfg.Lock.AuthCommand = *l.AuthCommand
		}
		cfg.Lock.AuthTimeout = derefDuration(l.AuthTimeout, cfg.Lock.AuthTimeout)
		if l.UserName != nil {
			cfg.Lock.UserName = *l.UserName
		}
		if l.Avatar != nil {
			cfg.Lock.Avatar = expandHome(*l.Avatar)
		}
	}

	if raw.Fonts != nil {
		cfg.Fonts = make([]string, 0, len(raw.Fonts))
		for i, path := range raw.Fonts {
			if path == "" {
				return nil, &ValidationError{Path: "fonts", Err: fmt.Errorf("fonts[%d] is empty", i)}
			}
			cfg.Fonts = append(cfg.Fonts, expandHome(path))
		}
	}

	return cfg, nil
}

func mergeStringMap(base map[string]string, overlay map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func derefDuration(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}
