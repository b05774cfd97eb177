package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/mccutchen/httpwatch/internal/control"
	"github.com/mccutchen/httpwatch/internal/export"
	"github.com/mccutchen/httpwatch/internal/transaction"
	"github.com/mccutchen/httpwatch/slices"
)

// App is the tview-based live consumer of the transaction stream,
// grounded on the tree/pages/frame layout in the retrieved dependency
// pack's interactive diff viewer (apidiff/interactive.go): a list on the
// left, a detail pane on the right, and a help frame wrapping both.
//
// The UI is an external collaborator: App only reads Transaction values
// off its input channel and only writes control.Command values to cmds.
// It never touches flow or table state.
type App struct {
	app    *tview.Application
	list   *tview.List
	detail *tview.TextView

	txns []transaction.Transaction
	cmds chan<- control.Command
}

// NewApp builds an App that sends a StopCapture command on cmds when 'x'
// is pressed. No key sends StartCapture; that goes through StartCapture.
func NewApp(cmds chan<- control.Command) *App {
	a := &App{cmds: cmds}

	a.list = tview.NewList().ShowSecondaryText(false)
	a.list.SetBorder(true).SetTitle(" transactions ")
	a.list.SetChangedFunc(func(index int, _ string, _ string, _ rune) {
		a.showDetail(index)
	})

	a.detail = tview.NewTextView()
	a.detail.SetDynamicColors(true).SetScrollable(true)
	a.detail.SetBorder(true).SetTitle(" request / response ")

	flex := tview.NewFlex().
		AddItem(a.list, 40, 1, true).
		AddItem(a.detail, 0, 2, false)

	frame := tview.NewFrame(flex)
	frame.AddText("q to quit, x to stop capture", false, tview.AlignLeft, tcell.ColorYellow)

	a.app = tview.NewApplication().SetRoot(frame, true).SetFocus(a.list)
	a.app.SetInputCapture(a.handleKey)

	return a
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case 'x', 'X':
		a.sendCommand(control.StopCapture{})
		return nil
	}
	return event
}

func (a *App) sendCommand(cmd control.Command) {
	select {
	case a.cmds <- cmd:
	default:
	}
}

// StartCapture sends a StartCapture command for iface, for callers that
// already know which interface to observe (e.g. from a CLI flag).
func (a *App) StartCapture(iface, bpfFilter string) {
	a.sendCommand(control.StartCapture{Interface: iface, BPFFilter: bpfFilter})
}

// Consume appends every transaction arriving on txns to the list, most
// recently emitted first (slices.Reverse at render time), until txns
// closes. Meant to run in its own goroutine alongside App.Run.
func (a *App) Consume(txns <-chan transaction.Transaction) {
	for txn := range txns {
		txn := txn
		a.app.QueueUpdateDraw(func() {
			a.txns = append(a.txns, txn)
			label := fmt.Sprintf("#%d %s %s -> %d", txn.FlowID, txn.Request.Method, txn.Request.Path, txn.Response.Status)
			a.list.InsertItem(0, label, "", 0, nil)
			if a.list.GetItemCount() == 1 {
				a.showDetail(0)
			}
		})
	}
}

// showDetail renders the transaction at the given position in the
// most-recent-first list ordering. The underlying a.txns slice is kept in
// arrival order, so the displayed index is translated through
// slices.Reverse rather than maintained as a second mirrored slice.
func (a *App) showDetail(listIndex int) {
	if listIndex < 0 || listIndex >= len(a.txns) {
		return
	}
	ordered := slices.Reverse(a.txns)
	txn := ordered[listIndex]

	a.detail.Clear()
	w := tview.ANSIWriter(a.detail)
	if err := export.WriteText(w, txn); err != nil {
		fmt.Fprintf(a.detail, "(render failed: %v)", err)
	}
}

// Run blocks until the user quits the application.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop requests the application event loop to exit.
func (a *App) Stop() {
	a.app.Stop()
}
