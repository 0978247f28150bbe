package config

import (
	"fmt"
	"strings"

	"github.com/1broseidon/deskshell/internal/launch"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	idle_timeout
//	panel_height
//	screen.width
//	preferred_terminal
//	terminal
//	apps
//	apps.<name>
//	screenshot.dir
//	notifications.max_visible
//	lock.auth_command
//	fonts
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}

	switch {
	case path == "terminal":
		if src, ok := res.Sources["preferred_terminal"]; ok {
			return value, src, nil
		}
		return value, Source{Kind: SourceBuiltin, Name: "detected"}, nil
	case strings.HasPrefix(path, "apps."):
		return value, Source{Kind: SourceBuiltin, Name: "launcher"}, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "log_level":
		return leaf(cfg.LogLevel)
	case "idle_timeout":
		return leaf(cfg.IdleTimeout.String())
	case "panel_height":
		return leaf(cfg.PanelHeight)
	case "snap_threshold":
		return leaf(cfg.SnapThreshold)
	case "display":
		return leaf(cfg.Display)
	case "preferred_terminal":
		return leaf(cfg.PreferredTerminal)
	case "terminal":
		return leaf(cfg.ResolveTerminal())
	case "file_manager":
		return leaf(cfg.FileManager)
	case "fonts":
		return leaf(cfg.Fonts)
	case "screen":
		if len(parts) == 1 {
			return cfg.Screen, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "width":
			return cfg.Screen.Width, nil
		case "height":
			return cfg.Screen.Height, nil
		}
	case "apps":
		catalog := launch.NewCatalog(cfg.LaunchApps())
		if len(parts) == 1 {
			out := make(map[string]string)
			for _, app := range catalog.Apps() {
				out[app.Name] = app.Command
			}
			return out, nil
		}
		name := strings.Join(parts[1:], ".")
		for _, app := range catalog.Apps() {
			if strings.EqualFold(app.Name, name) {
				return app.Command, nil
			}
		}
		return nil, fmt.Errorf("app %q not found", name)
	case "screenshot":
		if len(parts) == 1 {
			return cfg.Screenshot, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "dir":
			return cfg.Screenshot.Dir, nil
		case "copy_to_clipboard":
			return cfg.Screenshot.CopyToClipboard, nil
		case "save_to_file":
			return cfg.Screenshot.SaveToFile, nil
		case "show_notification":
			return cfg.Screenshot.ShowNotification, nil
		}
	case "notifications":
		if len(parts) == 1 {
			return cfg.Notifications, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "max_visible":
			return cfg.Notifications.MaxVisible, nil
		case "max_history":
			return cfg.Notifications.MaxHistory, nil
		case "default_timeout":
			return cfg.Notifications.DefaultTimeout.String(), nil
		case "history_file":
			return cfg.Notifications.HistoryFile, nil
		}
	case "lock":
		if len(parts) == 1 {
			return cfg.Lock, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "auth_command":
			return cfg.Lock.AuthCommand, nil
		case "auth_timeout":
			return cfg.Lock.AuthTimeout.String(), nil
		case "user_name":
			return cfg.UserName(), nil
		case "avatar":
			return cfg.Lock.Avatar, nil
		}
	}
	return nil, fmt.Errorf("unknown path: %s", path)
}
