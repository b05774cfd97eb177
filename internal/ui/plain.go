package ui

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
	"golang.org/x/term"

	"github.com/mccutchen/httpwatch/internal/export"
	"github.com/mccutchen/httpwatch/internal/transaction"
)

// PlainPrinter renders each Transaction as a one-line summary followed by
// its full request/response text, colored by method (blue) and status
// class (below 300 green, 3xx yellow, 4xx/5xx red).
//
// This is the consumer used whenever stdout isn't a TTY (piped output, a
// log file, CI): the terminal UI is an external collaborator that only
// reads finished transactions, and PlainPrinter is the simplest such
// collaborator, App (tview) the richer one.
type PlainPrinter struct {
	out   io.Writer
	color aurora.Aurora
}

// NewPlainPrinter builds a PlainPrinter writing to out. Coloring is
// disabled automatically when out is not a terminal.
func NewPlainPrinter(out io.Writer) *PlainPrinter {
	colorize := false
	if f, ok := out.(interface{ Fd() uintptr }); ok {
		colorize = term.IsTerminal(int(f.Fd()))
	}
	return &PlainPrinter{out: out, color: aurora.NewAurora(colorize)}
}

// Consume prints every transaction delivered on txns until the channel
// closes.
func (p *PlainPrinter) Consume(txns <-chan transaction.Transaction) {
	for txn := range txns {
		p.print(txn)
	}
}

func (p *PlainPrinter) print(txn transaction.Transaction) {
	statusColor := p.color.Green(txn.Response.Status)
	if txn.Response.Status >= 400 {
		statusColor = p.color.Red(txn.Response.Status)
	} else if txn.Response.Status >= 300 {
		statusColor = p.color.Yellow(txn.Response.Status)
	}

	fmt.Fprintf(p.out, "#%d %s -> %s  %s %s  %v\n",
		txn.FlowID, txn.Source, txn.Destination,
		p.color.Blue(txn.Request.Method), txn.Request.Path, statusColor)

	if err := export.WriteText(p.out, txn); err != nil {
		fmt.Fprintf(p.out, "(export failed: %v)\n", err)
	}
}
