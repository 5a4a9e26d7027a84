// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

const (
	StorageNode = "storage"
	ComputeNode = "compute"
)

// FlowNode is a run of consecutive frames on the same source line.
type FlowNode struct {
	Line         int      `json:"line"`
	Kind         string   `json:"kind"`
	Instructions []string `json:"instructions"`
	First        int      `json:"first"`
	Last         int      `json:"last"`
	GasUsed      uint64   `json:"gasUsed"`
}

// Contains reports whether frame [cursor] belongs to the node.
func (n FlowNode) Contains(cursor int) bool {
	return cursor >= n.First && cursor <= n.Last
}

// BuildFlow groups [trace] into flow nodes. A node touching storage is a
// storage node.
func BuildFlow(trace []TraceFrame) []FlowNode {
	nodes := []FlowNode{}
	for i, frame := range trace {
		if n := len(nodes); n > 0 && nodes[n-1].Line == frame.Line {
			node := &nodes[n-1]
			node.Instructions = append(node.Instructions, frame.Instruction)
			node.Last = i
			node.GasUsed = frame.GasUsed
			if IsStorageOp(frame.Instruction) {
				node.Kind = StorageNode
			}
			continue
		}
		kind := ComputeNode
		if IsStorageOp(frame.Instruction) {
			kind = StorageNode
		}
		nodes = append(nodes, FlowNode{
			Line:         frame.Line,
			Kind:         kind,
			Instructions: []string{frame.Instruction},
			First:        i,
			Last:         i,
			GasUsed:      frame.GasUsed,
		})
	}
	return nodes
}

// IsStorageOp reports whether [op] reads or writes contract storage.
func IsStorageOp(op string) bool {
	return op == "SLOAD" || op == "SSTORE"
}
