// Package gnet holds small channel-plumbing helpers shared by the capture
// pipeline and its consumers.
package gnet

// Tee duplicates every value read from in onto two output channels, so a
// single transaction stream can feed two independent consumers (for
// example the tview detail pane and the plain-text exporter) without
// either one needing to know about the other. Both outputs close once in
// is drained and closed.
func Tee[T any](in <-chan T) (<-chan T, <-chan T) {
	out1 := make(chan T)
	out2 := make(chan T)

	go func() {
		defer close(out1)
		defer close(out2)
		for t := range in {
			out1 <- t
			out2 <- t
		}
	}()

	return out1, out2
}
