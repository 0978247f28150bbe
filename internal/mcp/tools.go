package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
)

func textResult(format string, args ...any) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, ipc.StatusData, error) {
	st, err := s.session.GetStatus()
	if err != nil {
		return nil, ipc.StatusData{}, err
	}
	return nil, *st, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	windows, err := s.session.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	if windows == nil {
		windows = []ipc.WindowInfo{}
	}
	return nil, ListWindowsOutput{Windows: windows}, nil
}

func (s *Server) handleFocusWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.session.Focus(args.ID); err != nil {
		return nil, nil, err
	}
	return textResult("Focused window %d", args.ID), nil, nil
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args WindowInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.session.Close(args.ID); err != nil {
		return nil, nil, err
	}
	s.logger.Info("close requested", "window", args.ID)
	return textResult("Asked window %d to close", args.ID), nil, nil
}

func (s *Server) handleNotify(_ context.Context, _ *mcpsdk.CallToolRequest, args NotifyInput) (*mcpsdk.CallToolResult, NotifyOutput, error) {
	if strings.TrimSpace(args.Summary) == "" {
		return nil, NotifyOutput{}, fmt.Errorf("summary is required")
	}
	if args.Urgency != "" {
		if _, err := notify.ParseUrgency(args.Urgency); err != nil {
			return nil, NotifyOutput{}, err
		}
	}
	if args.TimeoutMS != nil && *args.TimeoutMS < 0 {
		return nil, NotifyOutput{}, fmt.Errorf("timeout_ms must be >= 0")
	}
	if args.Progress != nil && (*args.Progress < 0 || *args.Progress > 100) {
		return nil, NotifyOutput{}, fmt.Errorf("progress must be between 0 and 100")
	}

	app := args.App
	if app == "" {
		app = DefaultApp
	}
	id, err := s.session.Notify(ipc.NotifyPayload{
		App:       app,
		Summary:   args.Summary,
		Body:      args.Body,
		Icon:      args.Icon,
		Urgency:   args.Urgency,
		TimeoutMS: args.TimeoutMS,
		Progress:  args.Progress,
	})
	if err != nil {
		return nil, NotifyOutput{}, err
	}
	s.logger.Debug("notification posted", "id", id, "app", app)
	return nil, NotifyOutput{ID: id}, nil
}

func (s *Server) handleDismiss(_ context.Context, _ *mcpsdk.CallToolRequest, args DismissInput) (*mcpsdk.CallToolResult, DismissOutput, error) {
	if args.All {
		n, err := s.session.DismissAll()
		if err != nil {
			return nil, DismissOutput{}, err
		}
		return nil, DismissOutput{Dismissed: n}, nil
	}
	if args.ID == 0 {
		return nil, DismissOutput{}, fmt.Errorf("id is required unless all is set")
	}
	if err := s.session.Dismiss(args.ID); err != nil {
		return nil, DismissOutput{}, err
	}
	return nil, DismissOutput{Dismissed: 1}, nil
}

func (s *Server) handleHistory(_ context.Context, _ *mcpsdk.CallToolRequest, args HistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	if args.Limit < 0 {
		return nil, HistoryOutput{}, fmt.Errorf("limit must be >= 0")
	}
	entries, err := s.session.History()
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	if args.Limit > 0 && len(entries) > args.Limit {
		entries = entries[len(entries)-args.Limit:]
	}
	out := HistoryOutput{Notifications: make([]HistoryEntry, 0, len(entries))}
	for _, n := range entries {
		out.Notifications = append(out.Notifications, HistoryEntry{
			ID:        n.ID,
			App:       n.AppName,
			Summary:   n.Summary,
			Body:      n.Body,
			Urgency:   n.Urgency.String(),
			CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleOSD(_ context.Context, _ *mcpsdk.CallToolRequest, args OSDInput) (*mcpsdk.CallToolResult, any, error) {
	kind, err := notify.ParseOSDKind(args.Kind)
	if err != nil {
		return nil, nil, err
	}
	if args.Value < 0 || args.Value > 100 {
		return nil, nil, fmt.Errorf("value must be between 0 and 100")
	}
	if err := s.session.ShowOSD(kind.String(), args.Value); err != nil {
		return nil, nil, err
	}
	return textResult("Showing %s at %d%%", kind, args.Value), nil, nil
}

func (s *Server) handleLock(_ context.Context, _ *mcpsdk.CallToolRequest, _ LockInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.session.Lock(); err != nil {
		return nil, nil, err
	}
	s.logger.Info("session locked")
	return textResult("Session locked"), nil, nil
}

func (s *Server) handleScreenshot(_ context.Context, _ *mcpsdk.CallToolRequest, args ScreenshotInput) (*mcpsdk.CallToolResult, ipc.ScreenshotData, error) {
	mode, err := screenshot.ParseMode(args.Mode)
	if err != nil {
		return nil, ipc.ScreenshotData{}, err
	}
	data, err := s.session.Screenshot(mode.String())
	if err != nil {
		return nil, ipc.ScreenshotData{}, err
	}
	return nil, *data, nil
}

func (s *Server) handlePower(_ context.Context, _ *mcpsdk.CallToolRequest, args PowerInput) (*mcpsdk.CallToolResult, any, error) {
	action, err := session.ParseAction(args.Action)
	if err != nil {
		return nil, nil, err
	}
	if err := s.session.Power(action.String()); err != nil {
		return nil, nil, err
	}
	s.logger.Info("session action requested", "action", action)
	return textResult("Requested %s", action), nil, nil
}

func (s *Server) handleLaunch(_ context.Context, _ *mcpsdk.CallToolRequest, args LaunchInput) (*mcpsdk.CallToolResult, ipc.LaunchData, error) {
	if strings.TrimSpace(args.App) == "" {
		return nil, ipc.LaunchData{}, fmt.Errorf("app is required")
	}
	data, err := s.session.Launch(args.App)
	if err != nil {
		return nil, ipc.LaunchData{}, err
	}
	return nil, *data, nil
}

func (s *Server) handleReload(_ context.Context, _ *mcpsdk.CallToolRequest, _ ReloadInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.session.Reload(); err != nil {
		return nil, nil, err
	}
	return textResult("Configuration reloaded"), nil, nil
}
