// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/api"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/tracevm/tutor"
)

func newTestServer(t *testing.T, fixture string) (*Server, *manualScheduler) {
	scheduler := &manualScheduler{}
	s, err := New(Config{
		Fixture:      fixture,
		ExecuteDelay: time.Millisecond,
		Scheduler:    scheduler,
	}, memdb.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, scheduler
}

func TestNewRejectsUnknownFixture(t *testing.T) {
	_, err := New(Config{Fixture: "missing"}, memdb.New())
	assert.Error(t, err)
}

func TestServiceExecuteAndPlayback(t *testing.T) {
	assert := assert.New(t)
	s, scheduler := newTestServer(t, CounterFixture)
	service := &Service{server: s}

	var state StateReply
	require.NoError(t, service.GetState(nil, nil, &state))
	assert.Equal(Idle, state.State.Phase)

	var executed ExecuteReply
	require.NoError(t, service.Execute(nil, &ExecuteArgs{Source: CounterSource}, &executed))
	assert.True(executed.Result.Success)
	assert.Len(executed.Result.Trace, 4)
	assert.Equal(Ready, executed.State.Phase)
	assert.Equal(4, executed.State.TotalSteps)

	var reply PlaybackReply
	require.NoError(t, service.StepBack(nil, nil, &reply))
	assert.False(reply.Applied)

	require.NoError(t, service.Seek(nil, &SeekArgs{Step: 2}, &reply))
	assert.True(reply.Applied)
	assert.Equal(uint64(2106), reply.State.GasUsed)

	require.NoError(t, service.StepForward(nil, nil, &reply))
	assert.True(reply.Applied)
	assert.Equal(3, reply.State.Cursor)
	assert.Equal(0, reply.State.StepsRemaining)

	require.NoError(t, service.Play(nil, nil, &reply))
	assert.False(reply.Applied)

	require.NoError(t, service.Stop(nil, nil, &reply))
	assert.True(reply.Applied)
	assert.Equal(0, reply.State.Cursor)

	require.NoError(t, service.Play(nil, nil, &reply))
	assert.True(reply.Applied)
	assert.Equal(Playing, reply.State.Phase)
	require.True(t, scheduler.fire())

	require.NoError(t, service.Pause(nil, nil, &reply))
	assert.True(reply.Applied)
	assert.Equal(Ready, reply.State.Phase)
	assert.Equal(1, reply.State.Cursor)

	var flow FlowReply
	require.NoError(t, service.GetFlow(nil, nil, &flow))
	assert.Len(flow.Nodes, 2)
	assert.Equal(1, flow.Cursor)
}

func TestServiceExecuteRecordsProgress(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, TokenWalletFixture)
	service := &Service{server: s}

	var executed ExecuteReply
	require.NoError(t, service.Execute(nil, &ExecuteArgs{Source: TokenWalletSource, UserID: "alice"}, &executed))
	assert.Len(executed.Result.Trace, 10)

	var progress ProgressReply
	require.NoError(t, service.GetProgress(nil, &ProgressArgs{UserID: "alice"}, &progress))
	assert.Equal(DefaultLesson, progress.Record.LessonID)
	assert.True(progress.Record.Completed)
	assert.Equal(uint32(completedScore), progress.Record.Score)
	assert.Equal(TokenWalletSource, progress.Record.Code)

	require.NoError(t, service.Execute(nil, &ExecuteArgs{Source: "x", UserID: "alice", LessonID: "storage"}, &executed))
	var list ListProgressReply
	require.NoError(t, service.ListProgress(nil, &OwnerArgs{Owner: "alice"}, &list))
	assert.Len(list.Records, 2)

	err := service.GetProgress(nil, &ProgressArgs{UserID: "bob"}, &progress)
	assert.Equal(database.ErrNotFound, err)
}

// Source text is opaque to the service; even empty text reaches the executor.
func TestServiceExecutePassesSourceThrough(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)
	var sources []string
	s.controller.executor = ExecutorFunc(func(_ context.Context, source string) (*ExecutionResult, error) {
		sources = append(sources, source)
		return counterTrace(), nil
	})
	service := &Service{server: s}

	var executed ExecuteReply
	require.NoError(t, service.Execute(nil, &ExecuteArgs{}, &executed))
	assert.Equal([]string{""}, sources)
	assert.Equal(Ready, executed.State.Phase)
	assert.Equal(4, executed.State.TotalSteps)
}

func TestServiceExecuteFailure(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)
	s.controller.executor = ExecutorFunc(func(context.Context, string) (*ExecutionResult, error) {
		return &ExecutionResult{Success: false, Error: "Failed to process transaction"}, nil
	})
	service := &Service{server: s}

	err := service.Execute(nil, &ExecuteArgs{Source: "broken", UserID: "alice"}, &ExecuteReply{})
	assert.ErrorIs(err, ErrExecutionFailed)

	var state StateReply
	require.NoError(t, service.GetState(nil, nil, &state))
	assert.Equal(Idle, state.State.Phase)
	assert.Contains(state.State.LastError, "Failed to process transaction")

	// Failed runs are not recorded as progress.
	var list ListProgressReply
	require.NoError(t, service.ListProgress(nil, &OwnerArgs{Owner: "alice"}, &list))
	assert.Empty(list.Records)
}

func TestServiceContracts(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)
	service := &Service{server: s}

	var examplesList ListContractsReply
	require.NoError(t, service.ListContracts(nil, &OwnerArgs{Owner: ExamplesOwner}, &examplesList))
	require.Len(t, examplesList.Contracts, len(examples))

	// Bundled examples are read only.
	assert.ErrorIs(service.SaveContract(nil, &SaveContractArgs{Owner: ExamplesOwner, Name: "Counter"}, &ContractReply{}), errReadOnlyExamples)
	assert.ErrorIs(service.DeleteContract(nil, &ContractIDArgs{ID: examplesList.Contracts[0].ID}, &api.SuccessResponse{}), errReadOnlyExamples)

	var saved ContractReply
	require.NoError(t, service.SaveContract(nil, &SaveContractArgs{
		Owner:       "alice",
		Name:        "MyCounter",
		Code:        CounterSource,
		Description: "first try",
	}, &saved))
	assert.Equal(ContractID("alice", "MyCounter"), saved.Contract.ID)

	var fetched ContractReply
	require.NoError(t, service.GetContract(nil, &ContractIDArgs{ID: saved.Contract.ID}, &fetched))
	assert.Equal(saved.Contract, fetched.Contract)

	var list ListContractsReply
	require.NoError(t, service.ListContracts(nil, &OwnerArgs{Owner: "alice"}, &list))
	assert.Len(list.Contracts, 1)

	require.NoError(t, service.DeleteContract(nil, &ContractIDArgs{ID: saved.Contract.ID}, &api.SuccessResponse{}))
	assert.Equal(database.ErrNotFound, service.GetContract(nil, &ContractIDArgs{ID: saved.Contract.ID}, &fetched))

	_, err := s.state.GetContract(saved.Contract.ID)
	assert.Equal(database.ErrNotFound, err)
}

func TestServiceAsk(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)
	service := &Service{server: s}

	var answer tutor.Answer
	require.NoError(t, service.Ask(nil, &AskArgs{Text: "Why is gas so high?"}, &answer))
	assert.Equal("gas", answer.Topic)
	assert.NotContains(answer.Content, "Your last run")

	require.NoError(t, service.Execute(nil, &ExecuteArgs{Source: CounterSource}, &ExecuteReply{}))
	require.NoError(t, service.Ask(nil, &AskArgs{Text: "Why is gas so high?"}, &answer))
	assert.Contains(answer.Content, "Your last run executed 4 steps and used 22106 gas.")

	assert.Error(service.Ask(nil, &AskArgs{}, &answer))
}

func TestServiceAskRecordsChatHistory(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)
	s.clock = func() time.Time { return time.Unix(500, 0) }
	service := &Service{server: s}

	// Questions without a session are not recorded.
	var answer tutor.Answer
	require.NoError(t, service.Ask(nil, &AskArgs{Text: "What is gas?", UserID: "alice"}, &answer))
	var history ChatHistoryReply
	assert.Equal(database.ErrNotFound, service.GetChatHistory(nil, &ChatArgs{UserID: "alice", SessionID: "s1"}, &history))

	require.NoError(t, service.Ask(nil, &AskArgs{Text: "What is gas?", UserID: "alice", SessionID: "s1"}, &answer))
	require.NoError(t, service.Ask(nil, &AskArgs{Text: "What does SSTORE do?", UserID: "alice", SessionID: "s1"}, &answer))

	require.NoError(t, service.GetChatHistory(nil, &ChatArgs{UserID: "alice", SessionID: "s1"}, &history))
	assert.Equal("alice", history.History.UserID)
	assert.Equal("s1", history.History.SessionID)
	assert.Equal(int64(500), history.History.CreatedAt)
	require.Len(t, history.History.Messages, 4)
	assert.Equal(ChatMessage{Role: UserRole, Content: "What is gas?", Timestamp: 500}, history.History.Messages[0])
	assert.Equal(AssistantRole, history.History.Messages[1].Role)
	assert.Equal("gas", history.History.Messages[1].Topic)
	assert.Equal("What does SSTORE do?", history.History.Messages[2].Content)
	assert.Equal(answer.Content, history.History.Messages[3].Content)

	// Sessions are kept apart.
	assert.Equal(database.ErrNotFound, service.GetChatHistory(nil, &ChatArgs{UserID: "alice", SessionID: "s2"}, &history))

	// Failed questions are not recorded.
	assert.Error(service.Ask(nil, &AskArgs{UserID: "alice", SessionID: "s1"}, &answer))
	require.NoError(t, service.GetChatHistory(nil, &ChatArgs{UserID: "alice", SessionID: "s1"}, &history))
	assert.Len(history.History.Messages, 4)
}

func TestStaticService(t *testing.T) {
	assert := assert.New(t)
	ss := CreateStaticService()

	var fixtures ListFixturesReply
	require.NoError(t, ss.ListFixtures(nil, nil, &fixtures))
	assert.Equal([]string{CounterFixture, TokenWalletFixture}, fixtures.Fixtures)

	var word DecodeWordReply
	require.NoError(t, ss.DecodeWord(nil, &DecodeWordArgs{Word: "0x64"}, &word))
	assert.Equal("0x64", word.Hex)
	assert.Equal("100", word.Decimal)

	// Padded words decode to their canonical form.
	require.NoError(t, ss.DecodeWord(nil, &DecodeWordArgs{Word: "0x" + strings.Repeat("0", 60) + "5208"}, &word))
	assert.Equal("0x5208", word.Hex)
	assert.Equal("21000", word.Decimal)

	assert.Error(ss.DecodeWord(nil, &DecodeWordArgs{Word: "zz"}, &word))
	assert.Error(ss.DecodeWord(nil, &DecodeWordArgs{Word: "0x1" + strings.Repeat("0", 64)}, &word))
}

func TestHandlers(t *testing.T) {
	assert := assert.New(t)
	s, _ := newTestServer(t, CounterFixture)

	handlers, err := s.CreateHandlers()
	require.NoError(t, err)
	assert.Contains(handlers, "/rpc")
	assert.Contains(handlers, "/ws")
	assert.Contains(handlers, "/metrics")

	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tracevm.execute",
		"params":  ExecuteArgs{Source: CounterSource},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlers["/rpc"].ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result ExecuteReply     `json:"result"`
		Error  *json.RawMessage `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(resp.Error)
	assert.Equal(4, resp.Result.State.TotalSteps)

	metrics := httptest.NewRecorder()
	handlers["/metrics"].ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(metrics.Body.String(), `tracevm_executions{outcome="success"} 1`)

	static, err := s.CreateStaticHandlers()
	require.NoError(t, err)
	assert.Contains(static, "/static")
}

func TestNewSeedsOnlyOnce(t *testing.T) {
	db := memdb.New()
	s, err := New(Config{Scheduler: &manualScheduler{}}, db)
	require.NoError(t, err)
	s.controller.Close()
	s.hub.Close()

	// Reopen over the same database without closing it.
	s2, err := New(Config{Scheduler: &manualScheduler{}}, db)
	require.NoError(t, err)
	defer func() { _ = s2.Shutdown() }()

	contracts, err := s2.state.ListContracts(ExamplesOwner)
	require.NoError(t, err)
	assert.Len(t, contracts, len(examples))
}
