package client

import (
	"context"

	"github.com/ava-labs/avalanchego/api"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/tracevm/tracevm"
	"github.com/ava-labs/tracevm/tutor"
)

// Client defines tracevm client operations.
type Client interface {
	// Execute runs source text and loads its trace into the controller
	Execute(ctx context.Context, args tracevm.ExecuteArgs) (*tracevm.ExecutionResult, tracevm.Snapshot, error)

	// Play, Pause, Stop, StepForward, StepBack and Seek drive playback. The
	// returned bool is false when the operation was not allowed.
	Play(ctx context.Context) (bool, tracevm.Snapshot, error)
	Pause(ctx context.Context) (bool, tracevm.Snapshot, error)
	Stop(ctx context.Context) (bool, tracevm.Snapshot, error)
	StepForward(ctx context.Context) (bool, tracevm.Snapshot, error)
	StepBack(ctx context.Context) (bool, tracevm.Snapshot, error)
	Seek(ctx context.Context, step int) (bool, tracevm.Snapshot, error)

	// GetState fetches the controller's current state
	GetState(ctx context.Context) (tracevm.Snapshot, error)

	// GetFlow fetches the per-line flow of the loaded trace
	GetFlow(ctx context.Context) ([]tracevm.FlowNode, int, error)

	// Ask sends a question to the tutor. The exchange is recorded when
	// [args] names a user and a session.
	Ask(ctx context.Context, args tracevm.AskArgs) (tutor.Answer, error)
	// GetChatHistory fetches the recorded conversation of one session
	GetChatHistory(ctx context.Context, userID, sessionID string) (tracevm.ChatHistory, error)

	SaveContract(ctx context.Context, args tracevm.SaveContractArgs) (tracevm.SavedContract, error)
	GetContract(ctx context.Context, id ids.ID) (tracevm.SavedContract, error)
	ListContracts(ctx context.Context, owner string) ([]tracevm.SavedContract, error)
	DeleteContract(ctx context.Context, id ids.ID) error

	GetProgress(ctx context.Context, userID, lessonID string) (tracevm.ProgressRecord, error)
	ListProgress(ctx context.Context, userID string) ([]tracevm.ProgressRecord, error)
}

// New creates a new client object. [uri] is the full address of the /rpc
// endpoint.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri, "", tracevm.Name)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) Execute(ctx context.Context, args tracevm.ExecuteArgs) (*tracevm.ExecutionResult, tracevm.Snapshot, error) {
	resp := new(tracevm.ExecuteReply)
	err := cli.req.SendRequest(ctx,
		"execute",
		&args,
		resp,
	)
	if err != nil {
		return nil, tracevm.Snapshot{}, err
	}
	return resp.Result, resp.State, nil
}

func (cli *client) Play(ctx context.Context) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "play", struct{}{})
}

func (cli *client) Pause(ctx context.Context) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "pause", struct{}{})
}

func (cli *client) Stop(ctx context.Context) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "stop", struct{}{})
}

func (cli *client) StepForward(ctx context.Context) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "stepForward", struct{}{})
}

func (cli *client) StepBack(ctx context.Context) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "stepBack", struct{}{})
}

func (cli *client) Seek(ctx context.Context, step int) (bool, tracevm.Snapshot, error) {
	return cli.playback(ctx, "seek", &tracevm.SeekArgs{Step: step})
}

func (cli *client) playback(ctx context.Context, method string, args interface{}) (bool, tracevm.Snapshot, error) {
	resp := new(tracevm.PlaybackReply)
	if err := cli.req.SendRequest(ctx, method, args, resp); err != nil {
		return false, tracevm.Snapshot{}, err
	}
	return resp.Applied, resp.State, nil
}

func (cli *client) GetState(ctx context.Context) (tracevm.Snapshot, error) {
	resp := new(tracevm.StateReply)
	err := cli.req.SendRequest(ctx,
		"getState",
		struct{}{},
		resp,
	)
	return resp.State, err
}

func (cli *client) GetFlow(ctx context.Context) ([]tracevm.FlowNode, int, error) {
	resp := new(tracevm.FlowReply)
	err := cli.req.SendRequest(ctx,
		"getFlow",
		struct{}{},
		resp,
	)
	if err != nil {
		return nil, 0, err
	}
	return resp.Nodes, resp.Cursor, nil
}

func (cli *client) Ask(ctx context.Context, args tracevm.AskArgs) (tutor.Answer, error) {
	resp := new(tutor.Answer)
	err := cli.req.SendRequest(ctx,
		"ask",
		&args,
		resp,
	)
	return *resp, err
}

func (cli *client) GetChatHistory(ctx context.Context, userID, sessionID string) (tracevm.ChatHistory, error) {
	resp := new(tracevm.ChatHistoryReply)
	err := cli.req.SendRequest(ctx,
		"getChatHistory",
		&tracevm.ChatArgs{UserID: userID, SessionID: sessionID},
		resp,
	)
	return resp.History, err
}

func (cli *client) SaveContract(ctx context.Context, args tracevm.SaveContractArgs) (tracevm.SavedContract, error) {
	resp := new(tracevm.ContractReply)
	err := cli.req.SendRequest(ctx,
		"saveContract",
		&args,
		resp,
	)
	return resp.Contract, err
}

func (cli *client) GetContract(ctx context.Context, id ids.ID) (tracevm.SavedContract, error) {
	resp := new(tracevm.ContractReply)
	err := cli.req.SendRequest(ctx,
		"getContract",
		&tracevm.ContractIDArgs{ID: id},
		resp,
	)
	return resp.Contract, err
}

func (cli *client) ListContracts(ctx context.Context, owner string) ([]tracevm.SavedContract, error) {
	resp := new(tracevm.ListContractsReply)
	err := cli.req.SendRequest(ctx,
		"listContracts",
		&tracevm.OwnerArgs{Owner: owner},
		resp,
	)
	return resp.Contracts, err
}

func (cli *client) DeleteContract(ctx context.Context, id ids.ID) error {
	return cli.req.SendRequest(ctx,
		"deleteContract",
		&tracevm.ContractIDArgs{ID: id},
		&api.SuccessResponse{},
	)
}

func (cli *client) GetProgress(ctx context.Context, userID, lessonID string) (tracevm.ProgressRecord, error) {
	resp := new(tracevm.ProgressReply)
	err := cli.req.SendRequest(ctx,
		"getProgress",
		&tracevm.ProgressArgs{UserID: userID, LessonID: lessonID},
		resp,
	)
	return resp.Record, err
}

func (cli *client) ListProgress(ctx context.Context, userID string) ([]tracevm.ProgressRecord, error) {
	resp := new(tracevm.ListProgressReply)
	err := cli.req.SendRequest(ctx,
		"listProgress",
		&tracevm.OwnerArgs{Owner: userID},
		resp,
	)
	return resp.Records, err
}
