package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

func renderTasksTable(table *tview.Table, state desktopState) {
	table.Clear()
	headers := []string{"Task", "Status", "Gate", "Unlocks", "Title"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, t := range state.Tasks {
		row := i + 1
		gate := ""
		switch {
		case t.ID == state.BlockingTask:
			gate = "blocking"
		case t.Blocked:
			gate = "waiting"
		}
		table.SetCell(row, 0, tview.NewTableCell(t.ID))
		table.SetCell(row, 1, tview.NewTableCell(string(t.Status)).SetTextColor(statusColor(string(t.Status))))
		table.SetCell(row, 2, tview.NewTableCell(gate))
		table.SetCell(row, 3, tview.NewTableCell(strings.Join(t.UnlocksApps, ",")))
		table.SetCell(row, 4, tview.NewTableCell(trimLine(t.Title, 48)))
	}
}

func renderMailsTable(table *tview.Table, state desktopState) {
	table.Clear()
	headers := []string{"Mail", "From", "Read", "Title"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, m := range state.Mails {
		row := i + 1
		read := "no"
		if m.Read {
			read = "yes"
		}
		table.SetCell(row, 0, tview.NewTableCell(m.ID))
		table.SetCell(row, 1, tview.NewTableCell(m.From))
		table.SetCell(row, 2, tview.NewTableCell(read))
		table.SetCell(row, 3, tview.NewTableCell(trimLine(m.Title, 48)))
	}
}

func renderAppsTable(table *tview.Table, state desktopState) {
	table.Clear()
	headers := []string{"App", "Unlocked", "Openable", "Badge"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	badges := make(map[string]bool, len(state.Notifications))
	for _, id := range state.Notifications {
		badges[id] = true
	}
	for i, a := range state.Apps {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(a.ID))
		table.SetCell(row, 1, tview.NewTableCell(yesNo(a.Unlocked)))
		table.SetCell(row, 2, tview.NewTableCell(yesNo(a.Openable)))
		badge := ""
		if badges[a.ID] {
			badge = "●"
		}
		table.SetCell(row, 3, tview.NewTableCell(badge))
	}
}

func renderWindows(state desktopState) string {
	var b strings.Builder
	if len(state.Windows) == 0 {
		b.WriteString("No windows\n")
	}
	for _, w := range state.Windows {
		flags := ""
		if w.Minimized {
			flags += " minimized"
		}
		if w.Maximized {
			flags += " maximized"
		}
		b.WriteString(fmt.Sprintf(
			"%-10s z=%d %dx%d@%d,%d%s\n",
			w.AppID, w.ZIndex, w.Width, w.Height, w.X, w.Y, flags,
		))
	}
	for _, t := range state.Toasts {
		b.WriteString(fmt.Sprintf(
			"[yellow]%s[-] %s: %s\n",
			t.CreatedAt.Format("15:04:05"),
			tview.Escape(t.Title),
			tview.Escape(trimLine(t.Message, 60)),
		))
	}
	return b.String()
}

// parseEventLine splits `type {json}` into the event type and its data. The
// data part is optional.
func parseEventLine(line string) (string, json.RawMessage, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, errors.New("empty event")
	}
	eventType, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return eventType, nil, nil
	}
	if !json.Valid([]byte(rest)) {
		return "", nil, fmt.Errorf("data for %s is not valid json", eventType)
	}
	return eventType, json.RawMessage(rest), nil
}

func statusColor(status string) tcell.Color {
	switch status {
	case "completed":
		return tcell.ColorGreen
	case "failed":
		return tcell.ColorRed
	default:
		return tview.Styles.PrimaryTextColor
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func trimLine(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
