// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	log "github.com/inconshreveable/log15"

	"github.com/ava-labs/tracevm/tracevm"
)

func counter(t *testing.T) *tracevm.ExecutionResult {
	fixture, ok := tracevm.LookupFixture(tracevm.CounterFixture)
	require.True(t, ok)
	return fixture()
}

func TestFormatGas(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("2,100", FormatGas(2100))
	assert.Equal("22,106", FormatGas(22106))
	assert.Equal("0", FormatGas(0))
}

func TestDecodeWord(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("0x64 (100)", DecodeWord("0x64"))
	assert.Equal("0x0 (0)", DecodeWord("0x0"))
	assert.Equal("0x00 (0)", DecodeWord("0x00"))
	padded := "0x" + strings.Repeat("0", 62) + "64"
	assert.Equal(padded+" (100)", DecodeWord(padded))
	assert.Equal("zz", DecodeWord("zz"))
}

func TestStatePanel(t *testing.T) {
	assert := assert.New(t)
	result := counter(t)
	var buf bytes.Buffer
	panel := &StatePanel{W: &buf}

	panel.Render(&result.Trace[1], result.StorageChanges, 1, len(result.Trace))
	out := buf.String()
	assert.Contains(out, "#0 0x0 (0)")
	assert.Contains(out, "#1 0x1 (1)")
	assert.Contains(out, "count = 0")
	assert.Contains(out, "Gas: 2,103 (PUSH1)")

	buf.Reset()
	panel.Render(&result.Trace[3], result.StorageChanges, 3, len(result.Trace))
	assert.Contains(buf.String(), "Stack:\n  (empty)")

	buf.Reset()
	panel.Render(nil, nil, 0, 0)
	assert.Equal("Stack: (empty)\nStorage: (empty)\nGas: (empty)\n", buf.String())
}

func TestStorageTable(t *testing.T) {
	assert := assert.New(t)
	fixture, _ := tracevm.LookupFixture(tracevm.TokenWalletFixture)
	result := fixture()
	var buf bytes.Buffer
	table := &StorageTable{W: &buf}

	table.Render(&result.Trace[0], result.StorageChanges, 0, len(result.Trace))
	out := buf.String()
	assert.Contains(out, "balance: 0 -> 100\n")
	assert.Contains(out, "userBalances[msg.sender]: 0 -> 100 NEW\n")
	assert.Contains(out, "totalTransactions: 0 -> 1\n")

	buf.Reset()
	table.Render(nil, nil, 0, 0)
	assert.Equal("Storage changes: (empty)\n", buf.String())
}

func TestCounters(t *testing.T) {
	result := counter(t)
	var buf bytes.Buffer
	view := &Counters{W: &buf}
	view.Render(&result.Trace[2], result.StorageChanges, 2, len(result.Trace))
	assert.Equal(t, "Step 3 of 4 | gas 2,106 | remaining 1\n", buf.String())
}

func TestFlowDiagram(t *testing.T) {
	assert := assert.New(t)
	result := counter(t)
	var buf bytes.Buffer
	view := &FlowDiagram{W: &buf}

	view.Render(&result.Trace[0], result.StorageChanges, 0, len(result.Trace))
	assert.Contains(buf.String(), "line 6 [storage] SLOAD gas=2,100")
	assert.NotContains(buf.String(), "applied")

	buf.Reset()
	view.Render(&result.Trace[3], result.StorageChanges, 3, len(result.Trace))
	assert.Contains(buf.String(), "applied count: 0 -> 1")

	buf.Reset()
	view.Render(nil, nil, 0, 0)
	assert.Equal("Flow: (empty)\n", buf.String())
}

func TestTrack(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("[>...]", Track(0, 4, 4))
	assert.Equal("[===>]", Track(3, 4, 4))
	assert.Equal("[>...]", Track(0, 1, 4))
	assert.Equal("[]", Track(0, 0, 4))
}

func TestLogView(t *testing.T) {
	result := counter(t)
	var records []*log.Record
	logger := log.New()
	logger.SetHandler(log.FuncHandler(func(r *log.Record) error {
		records = append(records, r)
		return nil
	}))
	view := &LogView{Log: logger}
	view.Render(&result.Trace[0], result.StorageChanges, 0, len(result.Trace))
	view.Render(nil, nil, 0, 0)

	require.Len(t, records, 2)
	assert.Equal(t, "frame", records[0].Msg)
	assert.Equal(t, "trace is empty", records[1].Msg)
}
