// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tutor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfflineTopics(t *testing.T) {
	tests := []struct {
		question string
		topic    string
	}{
		{"Why does this cost so much gas?", "gas"},
		{"what does SSTORE do", "storage"},
		{"How does PUSH1 work?", "stack"},
		{"explain the increment function", "function"},
		{"hello", "general"},
	}
	for _, test := range tests {
		t.Run(test.question, func(t *testing.T) {
			require := require.New(t)
			answer, err := Offline{}.Ask(context.Background(), Question{Text: test.question})
			require.NoError(err)
			require.Equal(test.topic, answer.Topic)
			require.NotEmpty(answer.Content)
		})
	}
}

func TestOfflineMentionsRun(t *testing.T) {
	require := require.New(t)
	answer, err := Offline{}.Ask(context.Background(), Question{Text: "gas?", Steps: 4, GasUsed: 22106})
	require.NoError(err)
	require.Contains(answer.Content, "4 steps")
	require.Contains(answer.Content, "22106 gas")
}

func TestOfflineRejectsEmpty(t *testing.T) {
	_, err := Offline{}.Ask(context.Background(), Question{Text: "  "})
	require.ErrorIs(t, err, errEmptyQuestion)
}

func TestOfflineHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Offline{}.Ask(ctx, Question{Text: "gas"})
	require.ErrorIs(t, err, context.Canceled)
}
