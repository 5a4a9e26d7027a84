// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import "sort"

const (
	CounterFixture     = "counter"
	TokenWalletFixture = "token-wallet"
)

// Fixture builds a fresh copy of a recorded execution result.
type Fixture func() *ExecutionResult

var fixtures = map[string]Fixture{
	CounterFixture:     counterTrace,
	TokenWalletFixture: tokenWalletTrace,
}

// LookupFixture returns the fixture registered under [name].
func LookupFixture(name string) (Fixture, bool) {
	f, ok := fixtures[name]
	return f, ok
}

// FixtureNames returns the registered fixture names in sorted order.
func FixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// counterTrace is the SLOAD/PUSH1/ADD/SSTORE sequence of count += 1.
func counterTrace() *ExecutionResult {
	return &ExecutionResult{
		Success: true,
		Trace: []TraceFrame{
			{Line: 6, Instruction: "SLOAD", GasUsed: 2100, Stack: []string{"0x0"}, Memory: []string{}, Storage: map[string]string{"count": "0"}},
			{Line: 7, Instruction: "PUSH1", GasUsed: 2103, Stack: []string{"0x0", "0x1"}, Memory: []string{}, Storage: map[string]string{"count": "0"}},
			{Line: 7, Instruction: "ADD", GasUsed: 2106, Stack: []string{"0x1"}, Memory: []string{}, Storage: map[string]string{"count": "0"}},
			{Line: 7, Instruction: "SSTORE", GasUsed: 22106, Stack: []string{}, Memory: []string{}, Storage: map[string]string{"count": "1"}},
		},
		StorageChanges: []StorageChange{
			{Variable: "count", PreviousValue: "0", NewValue: "1"},
		},
	}
}

// tokenWalletTrace is a deposit(100) call on the TokenWallet example.
func tokenWalletTrace() *ExecutionResult {
	wallet := func(balance, transactions string, userBalance *string) map[string]string {
		s := map[string]string{
			"isActive":          "true",
			"balance":           balance,
			"totalTransactions": transactions,
			"walletName":        "MyTokenWallet",
		}
		if userBalance != nil {
			s["userBalances[msg.sender]"] = *userBalance
		}
		return s
	}
	zero, hundred := "0", "100"

	return &ExecutionResult{
		Success: true,
		Trace: []TraceFrame{
			{Line: 85, Instruction: "SLOAD", GasUsed: 2100, Stack: []string{"0x1"}, Memory: []string{}, Storage: wallet("0", "0", nil)},
			{Line: 86, Instruction: "PUSH1", GasUsed: 2103, Stack: []string{"0x1", "0x64"}, Memory: []string{}, Storage: wallet("0", "0", nil)},
			{Line: 89, Instruction: "ADD", GasUsed: 2106, Stack: []string{"0x64"}, Memory: []string{}, Storage: wallet("0", "0", nil)},
			{Line: 89, Instruction: "SSTORE", GasUsed: 22106, Stack: []string{"0x64"}, Memory: []string{}, Storage: wallet("100", "0", nil)},
			{Line: 90, Instruction: "SLOAD", GasUsed: 24206, Stack: []string{}, Memory: []string{}, Storage: wallet("100", "0", &zero)},
			{Line: 90, Instruction: "ADD", GasUsed: 24209, Stack: []string{"0x64"}, Memory: []string{}, Storage: wallet("100", "0", &zero)},
			{Line: 90, Instruction: "SSTORE", GasUsed: 44209, Stack: []string{}, Memory: []string{}, Storage: wallet("100", "0", &hundred)},
			{Line: 91, Instruction: "SLOAD", GasUsed: 46309, Stack: []string{"0x1"}, Memory: []string{}, Storage: wallet("100", "0", &hundred)},
			{Line: 91, Instruction: "ADD", GasUsed: 46312, Stack: []string{"0x1"}, Memory: []string{}, Storage: wallet("100", "0", &hundred)},
			{Line: 91, Instruction: "SSTORE", GasUsed: 51312, Stack: []string{}, Memory: []string{}, Storage: wallet("100", "1", &hundred)},
		},
		StorageChanges: []StorageChange{
			{Variable: "balance", PreviousValue: "0", NewValue: "100"},
			{Variable: "userBalances[msg.sender]", PreviousValue: "0", NewValue: "100", IsNew: true},
			{Variable: "totalTransactions", PreviousValue: "0", NewValue: "1"},
		},
	}
}
