// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

// View renders the frame at the controller's cursor. [frame] is nil when the
// loaded trace is empty. Implementations must not call back into the
// controller.
type View interface {
	Render(frame *TraceFrame, changes []StorageChange, cursor, total int)
}

// ViewFunc adapts a function into a View.
type ViewFunc func(frame *TraceFrame, changes []StorageChange, cursor, total int)

// Render calls f.
func (f ViewFunc) Render(frame *TraceFrame, changes []StorageChange, cursor, total int) {
	f(frame, changes, cursor, total)
}

// Highlighter asks an editor surface to mark a source line. Calls are best
// effort.
type Highlighter interface {
	HighlightLine(line int)
}

// HighlighterFunc adapts a function into a Highlighter.
type HighlighterFunc func(line int)

// HighlightLine calls f(line).
func (f HighlighterFunc) HighlightLine(line int) { f(line) }

type noHighlighter struct{}

func (noHighlighter) HighlightLine(int) {}
