// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"fmt"
	"net/http"
)

// StaticService defines the stateless API of the trace service
type StaticService struct{}

// CreateStaticService ...
func CreateStaticService() *StaticService {
	return &StaticService{}
}

// ListFixturesReply is the reply from ListFixtures
type ListFixturesReply struct {
	Fixtures []string `json:"fixtures"`
}

// ListFixtures returns the names of the recorded traces an executor can replay
func (ss *StaticService) ListFixtures(_ *http.Request, _ *struct{}, reply *ListFixturesReply) error {
	reply.Fixtures = FixtureNames()
	return nil
}

// DecodeWordArgs are arguments for DecodeWord
type DecodeWordArgs struct {
	Word string `json:"word"`
}

// DecodeWordReply is the reply from DecodeWord
type DecodeWordReply struct {
	Hex     string `json:"hex"`
	Decimal string `json:"decimal"`
}

// DecodeWord returns the canonical hex and decimal values of a stack word
func (ss *StaticService) DecodeWord(_ *http.Request, args *DecodeWordArgs, reply *DecodeWordReply) error {
	word, err := ParseWord(args.Word)
	if err != nil {
		return fmt.Errorf("couldn't decode word %q: %s", args.Word, err)
	}
	reply.Hex = word.Hex()
	reply.Decimal = word.Dec()
	return nil
}
