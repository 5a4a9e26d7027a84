package client

import (
	"context"

	"github.com/ava-labs/avalanchego/utils/rpc"

	"github.com/ava-labs/tracevm/tracevm"
)

// StaticClient defines the stateless tracevm client operations.
type StaticClient interface {
	// ListFixtures returns the names of the recorded traces
	ListFixtures(ctx context.Context) ([]string, error)

	// DecodeWord returns the hex and decimal forms of a stack word
	DecodeWord(ctx context.Context, word string) (string, string, error)
}

// NewStatic creates a client for the /static endpoint at [uri].
func NewStatic(uri string) StaticClient {
	return &staticClient{req: rpc.NewEndpointRequester(uri, "", tracevm.Name)}
}

type staticClient struct {
	req rpc.EndpointRequester
}

func (cli *staticClient) ListFixtures(ctx context.Context) ([]string, error) {
	resp := new(tracevm.ListFixturesReply)
	err := cli.req.SendRequest(ctx, "listFixtures", struct{}{}, resp)
	return resp.Fixtures, err
}

func (cli *staticClient) DecodeWord(ctx context.Context, word string) (string, string, error) {
	resp := new(tracevm.DecodeWordReply)
	err := cli.req.SendRequest(ctx,
		"decodeWord",
		&tracevm.DecodeWordArgs{Word: word},
		resp,
	)
	return resp.Hex, resp.Decimal, err
}
