package main

import (
	"fmt"
	"time"

	"github.com/1broseidon/deskshell/internal/ipc"
	"github.com/1broseidon/deskshell/internal/notify"
	"github.com/1broseidon/deskshell/internal/tui"
)

func runHistory(args []string) int {
	fs := newFlagSet("history",
		"Usage: deskshell history [--plain|--json] [--limit N]",
		"",
		"Browse notification history. Opens an interactive browser unless",
		"--plain or --json is given.",
	)
	plain := fs.Bool("plain", false, "Print a table instead of opening the browser")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	limit := fs.Int("limit", 0, "Show at most N of the newest entries")
	socket := fs.String("socket", "", "Control socket path")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if code, ok := noArgs(fs); !ok {
		return code
	}

	client := newClient(*socket)
	if !*plain && !*asJSON {
		if err := tui.Run(client); err != nil {
			return fail(err)
		}
		return 0
	}

	entries, err := client.History()
	if err != nil {
		return fail(err)
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[len(entries)-*limit:]
	}
	if *asJSON {
		return printJSON(ipc.HistoryData{Notifications: entries})
	}
	if len(entries) == 0 {
		fmt.Println("history is empty")
		return 0
	}
	fmt.Println(historyTable(entries))
	return 0
}

func historyTable(entries []notify.Notification) string {
	t := newTable("ID", "TIME", "APP", "URGENCY", "SUMMARY")
	for i := len(entries) - 1; i >= 0; i-- {
		n := entries[i]
		t.Row(
			fmt.Sprint(n.ID),
			n.CreatedAt.Local().Format(time.DateTime),
			n.AppName,
			n.Urgency.String(),
			n.Summary,
		)
	}
	return t.String()
}
