// Package export renders a Transaction to a plain-text layout: method/path
// line, headers, blank line, body, then status line, headers, blank
// line, body.
package export

import (
	"fmt"
	"io"

	"github.com/mccutchen/httpwatch/internal/transaction"
)

// WriteText writes txn in the on-demand export format.
func WriteText(w io.Writer, txn transaction.Transaction) error {
	req := txn.Request
	if _, err := fmt.Fprintf(w, "HTTP 1.%d %s %s\n", req.Minor, req.Method, req.Path); err != nil {
		return err
	}
	for _, field := range req.Header.Fields() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", field.Name, field.Value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if body, ok := req.Body.Get(); ok {
		if _, err := fmt.Fprintln(w, body); err != nil {
			return err
		}
	}

	resp := txn.Response
	statusLine := fmt.Sprintf("%d", resp.Status)
	if reason, ok := resp.Reason.Get(); ok {
		statusLine += " " + reason
	}
	if _, err := fmt.Fprintln(w, statusLine); err != nil {
		return err
	}
	for _, field := range resp.Header.Fields() {
		if _, err := fmt.Fprintf(w, "%s: %s\n", field.Name, field.Value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if body, ok := resp.Body.Get(); ok {
		if _, err := fmt.Fprintln(w, body); err != nil {
			return err
		}
	}

	return nil
}
