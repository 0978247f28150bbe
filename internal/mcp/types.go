package mcp

import "github.com/1broseidon/deskshell/internal/ipc"

// StatusInput is the input for the get_status tool.
type StatusInput struct{}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []ipc.WindowInfo `json:"windows"`
}

// WindowInput selects a managed window by its surface id.
type WindowInput struct {
	ID uint32 `json:"id" jsonschema:"required,Surface id of the window as reported by list_windows"`
}

// NotifyInput is the input for the notify tool.
type NotifyInput struct {
	Summary string `json:"summary" jsonschema:"required,Notification title"`
	Body    string `json:"body,omitempty" jsonschema:"Notification body text"`
	App     string `json:"app,omitempty" jsonschema:"Application name shown on the toast (default: mcp)"`
	Icon    string `json:"icon,omitempty" jsonschema:"Icon name or path"`
	Urgency string `json:"urgency,omitempty" jsonschema:"low, normal or critical (default: normal). Critical toasts never expire."`
	// TimeoutMS is only used when set; zero means the toast never expires.
	TimeoutMS *int64 `json:"timeout_ms,omitempty" jsonschema:"Expiry in milliseconds. Omit for the session default; 0 never expires."`
	Progress  *int   `json:"progress,omitempty" jsonschema:"Optional progress percentage 0-100"`
}

// NotifyOutput is the output for the notify tool.
type NotifyOutput struct {
	ID uint32 `json:"id"`
}

// DismissInput is the input for the dismiss_notification tool.
type DismissInput struct {
	ID  uint32 `json:"id,omitempty" jsonschema:"Notification id to dismiss"`
	All bool   `json:"all,omitempty" jsonschema:"When true, dismiss every visible notification and ignore id"`
}

// DismissOutput is the output for the dismiss_notification tool.
type DismissOutput struct {
	Dismissed int `json:"dismissed"`
}

// HistoryInput is the input for the notification_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Return at most this many of the newest entries (default: all)"`
}

// HistoryEntry is one dismissed or expired notification.
type HistoryEntry struct {
	ID        uint32 `json:"id"`
	App       string `json:"app"`
	Summary   string `json:"summary"`
	Body      string `json:"body,omitempty"`
	Urgency   string `json:"urgency"`
	CreatedAt string `json:"created_at"`
}

// HistoryOutput is the output for the notification_history tool.
type HistoryOutput struct {
	Notifications []HistoryEntry `json:"notifications"`
}

// OSDInput is the input for the show_osd tool.
type OSDInput struct {
	Kind  string `json:"kind" jsonschema:"required,volume, brightness or mute"`
	Value int    `json:"value" jsonschema:"required,Level 0-100"`
}

// LockInput is the input for the lock_screen tool.
type LockInput struct{}

// ScreenshotInput is the input for the take_screenshot tool.
type ScreenshotInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"full, window or region (default: full). Region starts an interactive selection."`
}

// PowerInput is the input for the power_action tool.
type PowerInput struct {
	Action string `json:"action" jsonschema:"required,lock, logout, suspend, hibernate, reboot or shutdown"`
}

// LaunchInput is the input for the launch_app tool.
type LaunchInput struct {
	App string `json:"app" jsonschema:"required,Application name from the launcher catalog; close misspellings are resolved"`
}

// ReloadInput is the input for the reload_config tool.
type ReloadInput struct{}
