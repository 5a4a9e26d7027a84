// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package render draws the controller's frames as text. Every view renders
// only from the values it is pushed.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/tracevm/tracevm"
)

const emptyPlaceholder = "(empty)"

var (
	_ tracevm.View = (*StatePanel)(nil)
	_ tracevm.View = (*StorageTable)(nil)
	_ tracevm.View = (*FlowDiagram)(nil)
	_ tracevm.View = (*Counters)(nil)
	_ tracevm.View = (*LogView)(nil)
)

var printer = message.NewPrinter(language.English)

// FormatGas prints a gas amount with digit grouping.
func FormatGas(gas uint64) string {
	return printer.Sprintf("%d", gas)
}

// DecodeWord renders a hex stack word with its decimal value. Words that
// don't decode are returned unchanged.
func DecodeWord(word string) string {
	v, err := tracevm.ParseWord(word)
	if err != nil {
		return word
	}
	return fmt.Sprintf("%s (%s)", word, v.Dec())
}

// StatePanel shows the stack, storage and gas of the current frame.
type StatePanel struct {
	W io.Writer
}

func (p *StatePanel) Render(frame *tracevm.TraceFrame, _ []tracevm.StorageChange, _, _ int) {
	var b strings.Builder
	if frame == nil {
		fmt.Fprintf(&b, "Stack: %s\nStorage: %s\nGas: %s\n", emptyPlaceholder, emptyPlaceholder, emptyPlaceholder)
		io.WriteString(p.W, b.String())
		return
	}

	b.WriteString("Stack:\n")
	if len(frame.Stack) == 0 {
		fmt.Fprintf(&b, "  %s\n", emptyPlaceholder)
	}
	for i, word := range frame.Stack {
		fmt.Fprintf(&b, "  #%d %s\n", i, DecodeWord(word))
	}

	b.WriteString("Storage:\n")
	if len(frame.Storage) == 0 {
		fmt.Fprintf(&b, "  %s\n", emptyPlaceholder)
	}
	for _, name := range sortedKeys(frame.Storage) {
		fmt.Fprintf(&b, "  %s = %s\n", name, frame.Storage[name])
	}

	fmt.Fprintf(&b, "Gas: %s (%s)\n", FormatGas(frame.GasUsed), frame.Instruction)
	io.WriteString(p.W, b.String())
}

// StorageTable lists the storage changes of the whole run.
type StorageTable struct {
	W io.Writer
}

func (t *StorageTable) Render(_ *tracevm.TraceFrame, changes []tracevm.StorageChange, _, _ int) {
	var b strings.Builder
	if len(changes) == 0 {
		fmt.Fprintf(&b, "Storage changes: %s\n", emptyPlaceholder)
		io.WriteString(t.W, b.String())
		return
	}
	b.WriteString("Storage changes:\n")
	for _, c := range changes {
		marker := ""
		if c.IsNew {
			marker = " NEW"
		}
		fmt.Fprintf(&b, "  %s: %s -> %s%s\n", c.Variable, c.PreviousValue, c.NewValue, marker)
	}
	io.WriteString(t.W, b.String())
}

// Counters shows the step position, gas used and steps remaining.
type Counters struct {
	W io.Writer
}

func (c *Counters) Render(frame *tracevm.TraceFrame, _ []tracevm.StorageChange, cursor, total int) {
	if frame == nil {
		fmt.Fprintf(c.W, "Step 0 of 0 | gas %s | remaining 0\n", emptyPlaceholder)
		return
	}
	fmt.Fprintf(c.W, "Step %d of %d | gas %s | remaining %d\n",
		cursor+1, total, FormatGas(frame.GasUsed), total-1-cursor)
}

// LogView writes one log record per notification.
type LogView struct {
	Log log.Logger
}

func (l *LogView) Render(frame *tracevm.TraceFrame, changes []tracevm.StorageChange, cursor, total int) {
	if frame == nil {
		l.Log.Info("trace is empty")
		return
	}
	l.Log.Info("frame",
		"step", cursor+1,
		"of", total,
		"line", frame.Line,
		"op", frame.Instruction,
		"gas", frame.GasUsed,
		"stack", len(frame.Stack),
		"changes", len(changes),
	)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
