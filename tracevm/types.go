// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// wordDigits is the width of a 256-bit word in hex digits.
const wordDigits = 64

var (
	errNegativeLine      = errors.New("frame has a negative source line")
	errEmptyInstruction  = errors.New("frame has no instruction")
	errGasDecreased      = errors.New("frame's gas used is lower than its predecessor's")
	errMalformedWord     = errors.New("stack word is not a 256-bit hex value")
	errEmptyWord         = errors.New("stack word is empty")
	errWordTooWide       = errors.New("stack word is wider than 256 bits")
	errEmptyVariable     = errors.New("storage change has no variable name")
	errErrorOnSuccess    = errors.New("successful result carries an error message")
	errMissingFailReason = errors.New("execution failed without an error message")
)

// TraceFrame is one recorded instruction step.
// Each frame contains:
// 1) The source line the instruction belongs to
// 2) The cumulative gas used after the step
// 3) A snapshot of the stack, memory and storage
type TraceFrame struct {
	Line        int               `json:"line"`
	Instruction string            `json:"instruction"`
	GasUsed     uint64            `json:"gasUsed"`
	Stack       []string          `json:"stack"`
	Memory      []string          `json:"memory"`
	Storage     map[string]string `json:"storage"`
}

// StorageChange summarizes one persistent variable touched by a run.
type StorageChange struct {
	Variable      string `json:"variable"`
	PreviousValue string `json:"previousValue"`
	NewValue      string `json:"newValue"`
	IsNew         bool   `json:"isNew"`
}

// ExecutionResult is the complete output of one run. It is immutable once
// handed to the controller.
type ExecutionResult struct {
	Success        bool            `json:"success"`
	Trace          []TraceFrame    `json:"trace"`
	StorageChanges []StorageChange `json:"storageChanges"`
	Error          string          `json:"error,omitempty"`
}

// Verify returns nil iff [r] is a well formed successful result.
// To be valid:
// every frame has a non-negative line and an instruction,
// gas used never decreases from one frame to the next,
// every stack entry decodes as a 256-bit word,
// and every storage change names its variable.
func (r *ExecutionResult) Verify() error {
	if !r.Success {
		if r.Error == "" {
			return errMissingFailReason
		}
		return errors.New(r.Error)
	}
	if r.Error != "" {
		return errErrorOnSuccess
	}

	var prevGas uint64
	for i, frame := range r.Trace {
		if frame.Line < 0 {
			return fmt.Errorf("frame %d: %w", i, errNegativeLine)
		}
		if frame.Instruction == "" {
			return fmt.Errorf("frame %d: %w", i, errEmptyInstruction)
		}
		if frame.GasUsed < prevGas {
			return fmt.Errorf("frame %d (%d < %d): %w", i, frame.GasUsed, prevGas, errGasDecreased)
		}
		prevGas = frame.GasUsed
		for j, word := range frame.Stack {
			if _, err := ParseWord(word); err != nil {
				return fmt.Errorf("frame %d stack[%d] %q: %w", i, j, word, errMalformedWord)
			}
		}
	}
	for i, change := range r.StorageChanges {
		if change.Variable == "" {
			return fmt.Errorf("storage change %d: %w", i, errEmptyVariable)
		}
	}
	return nil
}

// ParseWord decodes a hex stack word. The 0x prefix is optional, and leading
// zeros are accepted up to the full 64 digit width. A bare "0x" is zero.
func ParseWord(word string) (*uint256.Int, error) {
	if word == "" {
		return nil, errEmptyWord
	}
	digits := word
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	if len(digits) > wordDigits {
		return nil, errWordTooWide
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromHex("0x" + digits)
}

// Clone returns a deep copy of [r] so the controller never shares slices
// or maps with an executor.
func (r *ExecutionResult) Clone() *ExecutionResult {
	if r == nil {
		return nil
	}
	out := &ExecutionResult{
		Success: r.Success,
		Error:   r.Error,
	}
	if r.Trace != nil {
		out.Trace = make([]TraceFrame, len(r.Trace))
		for i, frame := range r.Trace {
			out.Trace[i] = frame.clone()
		}
	}
	if r.StorageChanges != nil {
		out.StorageChanges = make([]StorageChange, len(r.StorageChanges))
		copy(out.StorageChanges, r.StorageChanges)
	}
	return out
}

func (r *ExecutionResult) trace() []TraceFrame {
	if r == nil {
		return nil
	}
	return r.Trace
}

func (f TraceFrame) clone() TraceFrame {
	out := f
	out.Stack = copyStrings(f.Stack)
	out.Memory = copyStrings(f.Memory)
	if f.Storage != nil {
		out.Storage = make(map[string]string, len(f.Storage))
		for k, v := range f.Storage {
			out.Storage[k] = v
		}
	}
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
