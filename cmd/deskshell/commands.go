package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/screenshot"
	"github.com/1broseidon/deskshell/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
)

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fail(err)
	}
	fmt.Println(string(data))
	return 0
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "Usage: deskshell status [--json]", "", "Show session status via IPC.")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}

	status, err := newClient(*socket).GetStatus()
	if err != nil {
		return fail(err)
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Println(statusTable(status))
	return 0
}

func statusTable(st *ipc.StatusData) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return cellStyle
		})
	t.Row("lock_state", st.LockState)
	t.Row("failed_attempts", strconv.Itoa(st.FailedAttempts))
	if st.LockoutSeconds > 0 {
		t.Row("lockout", (time.Duration(st.LockoutSeconds) * time.Second).String())
	}
	idle := "disabled"
	if st.IdleTimeoutSeconds > 0 {
		idle = (time.Duration(st.IdleTimeoutSeconds) * time.Second).String()
	}
	t.Row("idle_timeout", idle)
	t.Row("windows", strconv.Itoa(st.Windows))
	if st.FocusedWindow != 0 {
		t.Row("focused_window", strconv.FormatUint(uint64(st.FocusedWindow), 10))
	}
	t.Row("notifications", strconv.Itoa(st.Notifications))
	t.Row("launcher_open", strconv.FormatBool(st.LauncherOpen))
	t.Row("power_menu_open", strconv.FormatBool(st.PowerMenuOpen))
	t.Row("screen", fmt.Sprintf("%dx%d", st.ScreenWidth, st.ScreenHeight))
	t.Row("uptime", (time.Duration(st.UptimeSeconds) * time.Second).String())
	return t.String()
}

func runWindows(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "focus", "close":
			return runWindowAction(args[0], args[1:])
		case "list":
			args = args[1:]
		}
	}

	fs := newFlagSet("windows",
		"Usage:",
		"  deskshell windows [list] [--json]",
		"  deskshell windows focus <id>",
		"  deskshell windows close <id>",
	)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}

	windows, err := newClient(*socket).ListWindows()
	if err != nil {
		return fail(err)
	}
	if *asJSON {
		return printJSON(ipc.WindowsData{Windows: windows})
	}
	if len(windows) == 0 {
		fmt.Println("no managed windows")
		return 0
	}
	fmt.Println(windowsTable(windows))
	return 0
}

func windowsTable(windows []ipc.WindowInfo) string {
	t := newTable("ID", "TITLE", "GEOMETRY", "STATE")
	// Top of the stack first.
	for i := len(windows) - 1; i >= 0; i-- {
		w := windows[i]
		var state []string
		if w.Focused {
			state = append(state, "focused")
		}
		if w.Minimized {
			state = append(state, "minimized")
		}
		if w.Maximized {
			state = append(state, "maximized")
		}
		t.Row(
			strconv.FormatUint(uint64(w.ID), 10),
			w.Title,
			fmt.Sprintf("%dx%d+%d+%d", w.Width, w.Height, w.X, w.Y),
			strings.Join(state, ","),
		)
	}
	return t.String()
}

func runWindowAction(action string, args []string) int {
	fs := newFlagSet("windows "+action, fmt.Sprintf("Usage: deskshell windows %s <id>", action))
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return fail(err)
	}

	client := newClient(*socket)
	if action == "focus" {
		err = client.Focus(id)
	} else {
		err = client.Close(id)
	}
	if err != nil {
		return fail(err)
	}
	return 0
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint32(v), nil
}

// notifyFlags collects the options of the notify command.
type notifyFlags struct {
	app      string
	urgency  string
	icon     string
	timeout  string
	progress int
	actions  []notify.Action
}

func (f *notifyFlags) payload(summary, body string) (ipc.NotifyPayload, error) {
	p := ipc.NotifyPayload{
		App:     f.app,
		Summary: summary,
		Body:    body,
		Icon:    f.icon,
		Actions: f.actions,
	}
	if f.urgency != "" {
		u, err := notify.ParseUrgency(f.urgency)
		if err != nil {
			return p, err
		}
		p.Urgency = u.String()
	}
	if f.timeout != "" {
		ms, err := parseTimeoutMS(f.timeout)
		if err != nil {
			return p, err
		}
		p.TimeoutMS = &ms
	}
	if f.progress >= 0 {
		if f.progress > 100 {
			return p, errors.New("--progress must be between 0 and 100")
		}
		progress := f.progress
		p.Progress = &progress
	}
	return p, nil
}

// parseTimeoutMS accepts a Go duration or plain milliseconds. "0" and
// "never" mean the notification does not expire.
func parseTimeoutMS(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "never" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid timeout %q", s)
		}
		return ms, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	return d.Milliseconds(), nil
}

func parseAction(s string) (notify.Action, error) {
	id, label, ok := strings.Cut(s, "=")
	id, label = strings.TrimSpace(id), strings.TrimSpace(label)
	if !ok || id == "" || label == "" {
		return notify.Action{}, fmt.Errorf("action must be id=Label, got %q", s)
	}
	return notify.Action{ID: id, Label: label}, nil
}

func runNotify(args []string) int {
	fs := newFlagSet("notify", "Usage: deskshell notify [options] <summary> [body]", "", "Post a toast notification.")
	var f notifyFlags
	fs.StringVar(&f.app, "app", "deskshell", "Application name")
	fs.StringVar(&f.urgency, "urgency", "", "low, normal or critical")
	fs.StringVar(&f.icon, "icon", "", "Icon name or path")
	fs.StringVar(&f.timeout, "timeout", "", "Expiry (e.g. 5s, 2500, never); default from config")
	fs.IntVar(&f.progress, "progress", -1, "Progress percentage 0-100")
	fs.Func("action", "Action button as id=Label (repeatable)", func(s string) error {
		a, err := parseAction(s)
		if err != nil {
			return err
		}
		f.actions = append(f.actions, a)
		return nil
	})
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return 2
	}

	payload, err := f.payload(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return fail(err)
	}
	id, err := newClient(*socket).Notify(payload)
	if err != nil {
		return fail(err)
	}
	fmt.Println(id)
	return 0
}

func runDismiss(args []string) int {
	fs := newFlagSet("dismiss", "Usage: deskshell dismiss <id> | --all")
	all := fs.Bool("all", false, "Dismiss every visible notification")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := newClient(*socket)
	if *all {
		if fs.NArg() != 0 {
			fs.Usage()
			return 2
		}
		n, err := client.DismissAll()
		if err != nil {
			return fail(err)
		}
		fmt.Printf("dismissed %d\n", n)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	id, err := parseID(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := client.Dismiss(id); err != nil {
		return fail(err)
	}
	return 0
}

func runOSD(args []string) int {
	fs := newFlagSet("osd", "Usage: deskshell osd <volume|brightness|mute> <0-100>")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}
	kind, err := notify.ParseOSDKind(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	value, err := strconv.Atoi(fs.Arg(1))
	if err != nil || value < 0 || value > 100 {
		return fail(fmt.Errorf("value must be an integer between 0 and 100"))
	}
	if err := newClient(*socket).ShowOSD(kind.String(), value); err != nil {
		return fail(err)
	}
	return 0
}

func runLock(args []string) int {
	fs := newFlagSet("lock", "Usage: deskshell lock", "", "Lock the screen.")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}
	if err := newClient(*socket).Lock(); err != nil {
		return fail(err)
	}
	return 0
}

func runScreenshot(args []string) int {
	fs := newFlagSet("screenshot",
		"Usage: deskshell screenshot [full|window|region]",
		"",
		"Capture the screen. Region mode starts an interactive selection.",
	)
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}
	mode, err := screenshot.ParseMode(fs.Arg(0))
	if err != nil {
		return fail(err)
	}

	data, err := newClient(*socket).Screenshot(mode.String())
	if err != nil {
		return fail(err)
	}
	switch {
	case data.Pending:
		fmt.Println("drag to select a region on screen")
	case data.Path != "":
		fmt.Println(data.Path)
	default:
		fmt.Printf("captured %dx%d\n", data.Width, data.Height)
	}
	return 0
}

func runPower(args []string) int {
	fs := newFlagSet("power",
		"Usage: deskshell power [--yes] [lock|logout|suspend|hibernate|reboot|shutdown]",
		"",
		"Without an action an interactive picker is shown.",
	)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return 2
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	var action session.Action
	if fs.NArg() == 1 {
		a, err := session.ParseAction(fs.Arg(0))
		if err != nil {
			return fail(err)
		}
		action = a
	} else {
		if !interactive {
			fs.Usage()
			return 2
		}
		a, err := pickAction()
		if err != nil {
			return fail(err)
		}
		action = a
	}

	if needsConfirm(action) && !*yes && interactive {
		ok := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Really %s?", action)).
			Affirmative("Yes").
			Negative("No").
			Value(&ok).
			Run()
		if err != nil {
			return fail(err)
		}
		if !ok {
			return 1
		}
	}

	if err := newClient(*socket).Power(action.String()); err != nil {
		return fail(err)
	}
	return 0
}

func pickAction() (session.Action, error) {
	opts := make([]huh.Option[session.Action], 0, len(session.Actions))
	for _, a := range session.Actions {
		opts = append(opts, huh.NewOption(a.String(), a))
	}
	var picked session.Action
	err := huh.NewSelect[session.Action]().
		Title("Session action").
		Options(opts...).
		Value(&picked).
		Run()
	return picked, err
}

// needsConfirm reports whether an action ends the session or the machine.
func needsConfirm(a session.Action) bool {
	switch a {
	case session.Logout, session.Reboot, session.Shutdown:
		return true
	}
	return false
}

func runLaunch(args []string) int {
	fs := newFlagSet("launch", "Usage: deskshell launch <app>", "", "Start an application from the launcher catalog.")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 2
	}
	data, err := newClient(*socket).Launch(strings.Join(fs.Args(), " "))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("launched %s (%s)\n", data.Name, data.Command)
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "Usage: deskshell reload", "", "Ask the session to reload its configuration.")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}
	if err := newClient(*socket).Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}
