// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tutor answers questions about the contract being traced.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	errEmptyQuestion = errors.New("question is empty")

	_ Assistant = (*Offline)(nil)
)

// Question is one chat turn sent to an assistant.
type Question struct {
	Text string `json:"text"`
	Code string `json:"code"`
	// Steps and GasUsed describe the last run, when there is one.
	Steps   int    `json:"steps"`
	GasUsed uint64 `json:"gasUsed"`
}

// Answer is an assistant's reply.
type Answer struct {
	Content     string `json:"content"`
	CodeSnippet string `json:"codeSnippet,omitempty"`
	Topic       string `json:"topic"`
}

// Assistant answers questions. Remote model providers implement it outside
// this module.
type Assistant interface {
	Ask(ctx context.Context, q Question) (Answer, error)
}

type topic struct {
	name     string
	keywords []string
	content  string
	snippet  string
}

var topics = []topic{
	{
		name:     "gas",
		keywords: []string{"gas", "cost", "fee", "expensive"},
		content: `Gas is the unit of computational cost on Ethereum. Every instruction has a price:

- SLOAD (read from storage): ~2,100 gas
- SSTORE (write a new non-zero value to storage): ~20,000 gas
- Arithmetic such as ADD: 3 gas

Storage access dominates the cost of most state-changing functions.`,
		snippet: "function increment() public {\n    count += 1; // SLOAD + ADD + SSTORE\n}",
	},
	{
		name:     "storage",
		keywords: []string{"storage", "sstore", "sload", "state variable", "persist"},
		content: `State variables live in contract storage and persist between transactions.
SLOAD reads a slot onto the stack and SSTORE writes the top of the stack back to a slot.
The storage panel shows each variable's value as of the selected step.`,
	},
	{
		name:     "stack",
		keywords: []string{"stack", "push", "pop", "opcode", "instruction"},
		content: `The EVM is a stack machine. Instructions pop their operands from the stack and push results:
PUSH1 0x1 places a constant on top, ADD pops two words and pushes their sum.
Each word is 256 bits wide.`,
	},
	{
		name:     "function",
		keywords: []string{"function", "increment", "deposit", "public", "call"},
		content: `A public function can be called by anyone and may modify contract state.
Executing it compiles down to a sequence of instructions: load the current value (SLOAD),
compute the new value (ADD), and store it back (SSTORE).`,
		snippet: "function increment() public {\n    count += 1; // count = count + 1\n}",
	},
}

// Offline answers from a fixed set of topics without contacting a model.
type Offline struct{}

func (Offline) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return Answer{}, errEmptyQuestion
	}

	answer := Answer{
		Topic: "general",
		Content: `I can explain gas costs, storage, the stack, and how functions execute.
Run a transaction and step through the trace, then ask about any instruction you see.`,
	}
	for _, t := range topics {
		if matches(text, t.keywords) {
			answer = Answer{Topic: t.name, Content: t.content, CodeSnippet: t.snippet}
			break
		}
	}
	if q.Steps > 0 {
		answer.Content += fmt.Sprintf("\n\nYour last run executed %d steps and used %d gas.", q.Steps, q.GasUsed)
	}
	return answer, nil
}

func matches(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
