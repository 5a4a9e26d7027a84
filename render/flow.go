// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ava-labs/tracevm/tracevm"
)

const flowWidth = 20

// FlowDiagram draws where the cursor sits in the run: a progress track, the
// kind of the current instruction and the storage changes already applied.
type FlowDiagram struct {
	W io.Writer
}

func (d *FlowDiagram) Render(frame *tracevm.TraceFrame, changes []tracevm.StorageChange, cursor, total int) {
	if frame == nil {
		fmt.Fprintf(d.W, "Flow: %s\n", emptyPlaceholder)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Flow: %s\n", Track(cursor, total, flowWidth))

	kind := tracevm.ComputeNode
	if tracevm.IsStorageOp(frame.Instruction) {
		kind = tracevm.StorageNode
	}
	fmt.Fprintf(&b, "  line %d [%s] %s gas=%s\n", frame.Line, kind, frame.Instruction, FormatGas(frame.GasUsed))

	for _, c := range changes {
		if v, ok := frame.Storage[c.Variable]; ok && v == c.NewValue {
			fmt.Fprintf(&b, "  applied %s: %s -> %s\n", c.Variable, c.PreviousValue, c.NewValue)
		}
	}
	io.WriteString(d.W, b.String())
}

// Track draws a [width] cell progress track with the cursor marked.
func Track(cursor, total, width int) string {
	if total <= 0 || width <= 0 {
		return "[]"
	}
	pos := 0
	if total > 1 {
		pos = cursor * (width - 1) / (total - 1)
	}
	cells := make([]byte, width)
	for i := range cells {
		switch {
		case i < pos:
			cells[i] = '='
		case i == pos:
			cells[i] = '>'
		default:
			cells[i] = '.'
		}
	}
	return "[" + string(cells) + "]"
}
