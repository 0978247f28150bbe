package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/deskshell/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runSession(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "notify":
		os.Exit(runNotify(os.Args[2:]))
	case "dismiss":
		os.Exit(runDismiss(os.Args[2:]))
	case "osd":
		os.Exit(runOSD(os.Args[2:]))
	case "lock":
		os.Exit(runLock(os.Args[2:]))
	case "screenshot":
		os.Exit(runScreenshot(os.Args[2:]))
	case "power":
		os.Exit(runPower(os.Args[2:]))
	case "launch":
		os.Exit(runLaunch(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "history":
		os.Exit(runHistory(os.Args[2:]))
	case "auth-test":
		os.Exit(runAuthTest(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskshell <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the session shell (foreground)")
	fmt.Fprintln(w, "  status              Show session status")
	fmt.Fprintln(w, "  windows             List, focus or close managed windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  notify              Post a notification")
	fmt.Fprintln(w, "  dismiss             Dismiss notifications")
	fmt.Fprintln(w, "  history             Browse notification history")
	fmt.Fprintln(w, "  osd                 Show the volume/brightness/mute indicator")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  lock                Lock the screen")
	fmt.Fprintln(w, "  screenshot          Take a screenshot")
	fmt.Fprintln(w, "  power               Run a session action (logout, reboot, ...)")
	fmt.Fprintln(w, "  launch              Start an application from the catalog")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "  auth-test           Check a password against the configured auth command")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskshell <command> --help' for command-specific options.")
}

// newFlagSet builds a ContinueOnError flag set whose usage prints the given
// lines to stderr.
func newFlagSet(name string, usage ...string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		for _, line := range usage {
			fmt.Fprintln(os.Stderr, line)
		}
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and maps the outcome to an exit code; ok is false
// when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func noArgs(fs *flag.FlagSet) (int, bool) {
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func newClient(socket string) *ipc.Client {
	if socket != "" {
		return ipc.NewClientAt(socket)
	}
	return ipc.NewClient()
}
