// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import "errors"

var errUnknownPhase = errors.New("unknown playback phase")

// Phase is the controller's playback state.
type Phase uint8

const (
	Idle Phase = iota
	Ready
	Playing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Snapshot is the view-relevant state of the controller at one instant.
type Snapshot struct {
	Phase          Phase           `json:"phase"`
	Cursor         int             `json:"cursor"`
	TotalSteps     int             `json:"totalSteps"`
	GasUsed        uint64          `json:"gasUsed"`
	StepsRemaining int             `json:"stepsRemaining"`
	Frame          *TraceFrame     `json:"frame,omitempty"`
	StorageChanges []StorageChange `json:"storageChanges"`
	IsExecuting    bool            `json:"isExecuting"`
	LastError      string          `json:"lastError,omitempty"`
}

// Summary holds the values derived from a trace and a cursor.
type Summary struct {
	Frame          *TraceFrame
	GasUsed        uint64
	StepsRemaining int
}

// Summarize derives the display summary purely from [trace] and [cursor].
func Summarize(trace []TraceFrame, cursor int) Summary {
	if cursor < 0 || cursor >= len(trace) {
		return Summary{}
	}
	frame := &trace[cursor]
	return Summary{
		Frame:          frame,
		GasUsed:        frame.GasUsed,
		StepsRemaining: len(trace) - 1 - cursor,
	}
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = Idle
	case "ready":
		*p = Ready
	case "playing":
		*p = Playing
	default:
		return errUnknownPhase
	}
	return nil
}
