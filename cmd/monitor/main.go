package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/urfave/cli/v3"

	"ndi_desktop/internal/config"
)

func main() {
	var (
		addr     string
		basePath string
		interval time.Duration
		embedded bool
		binary   string
		dbPath   string
	)

	cmd := &cli.Command{
		Name:  "ndi-monitor",
		Usage: "Terminal view of the desktop quest state",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "desktop server URL", Value: "http://localhost:3000", Sources: cli.EnvVars("NDI_MONITOR_ADDR"), Destination: &addr},
			&cli.StringFlag{Name: "base-path", Usage: "URL prefix of the desktop", Value: "/ndi", Sources: cli.EnvVars("BASE_PATH"), Destination: &basePath},
			&cli.DurationFlag{Name: "interval", Usage: "refresh interval", Value: 2 * time.Second, Destination: &interval},
			&cli.BoolFlag{Name: "embedded", Usage: "start the desktop server for the monitor lifetime", Destination: &embedded},
			&cli.StringFlag{Name: "desktop-bin", Usage: "path to the desktop binary (optional in embedded mode)", Destination: &binary},
			&cli.StringFlag{Name: "db", Usage: "sqlite db path for the embedded server", Value: "data/embedded.db", Destination: &dbPath},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			c := newClient(strings.TrimRight(addr, "/") + config.NormalizeBasePath(basePath))
			if embedded {
				proc, err := startEmbeddedDesktop(addr, basePath, binary, dbPath)
				if err != nil {
					return fmt.Errorf("start embedded desktop: %w", err)
				}
				defer proc.Stop()
			}
			if err := waitHealth(c, 30*time.Second); err != nil {
				return fmt.Errorf("desktop health check failed: %w", err)
			}
			return runMonitor(c, interval)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runMonitor(c *client, interval time.Duration) error {
	app := tview.NewApplication()

	tasksTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	tasksTable.SetTitle("Tasks (F5 refresh, Ctrl+R reset, F10 quit)").SetBorder(true)

	mailsTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	mailsTable.SetTitle("Mails").SetBorder(true)

	appsTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	appsTable.SetTitle("Apps (Enter open)").SetBorder(true)

	windowsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	windowsView.SetTitle("Windows & toasts").SetBorder(true)

	eventInput := tview.NewInputField().
		SetLabel("Event -> desktop: ")
	eventInput.SetBorder(true).SetTitle(`Enter = emit "type {json data}"`)

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | shortcuts: F10 quit, F5 refresh, Ctrl+R reset, Ctrl+L focus event, Ctrl+T focus tasks",
		c.baseURL,
	))

	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tasksTable, 0, 3, false).
		AddItem(mailsTable, 0, 2, false)
	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(appsTable, 0, 2, false).
		AddItem(windowsView, 0, 1, false)
	mainLayout := tview.NewFlex().
		AddItem(left, 0, 2, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(eventInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	var lastState desktopState

	setStatusUI := func(msg string) {
		statusView.SetText(msg)
	}
	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	refresh := func() {
		state, err := c.state()
		if err != nil {
			app.QueueUpdateDraw(func() {
				tasksTable.Clear()
				tasksTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", err)).SetTextColor(tview.Styles.ContrastSecondaryTextColor))
			})
			return
		}
		app.QueueUpdateDraw(func() {
			lastState = state
			renderTasksTable(tasksTable, state)
			renderMailsTable(mailsTable, state)
			renderAppsTable(appsTable, state)
			windowsView.SetText(renderWindows(state))
		})
	}

	submitEvent := func(line string) {
		eventType, data, err := parseEventLine(line)
		if err != nil {
			setStatusUI("Invalid event: " + err.Error())
			return
		}
		eventInput.SetText("")
		setStatusUI("Emitting " + eventType + "...")
		go func() {
			if err := c.emit(eventType, data); err != nil {
				setStatusAsync("Emit failed: " + err.Error())
				return
			}
			refresh()
			setStatusAsync("Emitted " + eventType)
		}()
	}

	eventInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		submitEvent(eventInput.GetText())
	})

	appsTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastState.Apps) {
			return
		}
		appID := lastState.Apps[row-1].ID
		go func() {
			if err := c.openWindow(appID); err != nil {
				setStatusAsync("Open failed: " + err.Error())
				return
			}
			refresh()
			setStatusAsync("Opened " + appID)
		}()
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if app.GetFocus() == eventInput {
			if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyTAB {
				app.SetFocus(tasksTable)
				setStatusUI("Focus -> tasks")
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlT:
			app.SetFocus(tasksTable)
			setStatusUI("Focus -> tasks")
			return nil
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go refresh()
			setStatusUI("Manual refresh")
			return nil
		case tcell.KeyCtrlL:
			app.SetFocus(eventInput)
			setStatusUI("Focus -> event")
			return nil
		case tcell.KeyCtrlR:
			go func() {
				if err := c.reset(); err != nil {
					setStatusAsync("Reset failed: " + err.Error())
					return
				}
				refresh()
				setStatusAsync("Progress reset")
			}()
			return nil
		case tcell.KeyTAB:
			switch app.GetFocus() {
			case tasksTable:
				app.SetFocus(mailsTable)
			case mailsTable:
				app.SetFocus(appsTable)
			default:
				app.SetFocus(eventInput)
			}
			return nil
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		refresh()
		for range ticker.C {
			refresh()
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(eventInput).Run(); err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}
