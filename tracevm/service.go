// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"context"
	"net/http"

	"github.com/ava-labs/avalanchego/api"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/tracevm/tutor"
)

const (
	// DefaultLesson is recorded for runs that don't name a lesson.
	DefaultLesson = "sandbox"

	completedScore = 100
)

// Service is the API service for the playback controller
type Service struct{ server *Server }

// ExecuteArgs are the arguments to Execute
type ExecuteArgs struct {
	Source string `json:"source"`
	// UserID, when set, records the run as lesson progress.
	UserID   string `json:"userID"`
	LessonID string `json:"lessonID"`
}

// ExecuteReply is the reply from Execute
type ExecuteReply struct {
	Result *ExecutionResult `json:"result"`
	State  Snapshot         `json:"state"`
}

// PlaybackReply is the reply from every playback operation. Applied is false
// when the operation was not allowed in the current state.
type PlaybackReply struct {
	Applied bool     `json:"applied"`
	State   Snapshot `json:"state"`
}

// SeekArgs are the arguments to Seek
type SeekArgs struct {
	Step int `json:"step"`
}

// StateReply is the reply from GetState
type StateReply struct {
	State Snapshot `json:"state"`
}

// Execute runs [args.Source] and loads its trace into the controller.
func (s *Service) Execute(r *http.Request, args *ExecuteArgs, reply *ExecuteReply) error {
	result, err := s.server.controller.Execute(requestContext(r), args.Source)
	if err != nil {
		return err
	}
	if args.UserID != "" {
		s.server.recordProgress(args.UserID, args.LessonID, args.Source)
	}
	reply.Result = result
	reply.State = s.server.controller.Snapshot()
	return nil
}

// Play starts auto-advance from the current frame
func (s *Service) Play(_ *http.Request, _ *struct{}, reply *PlaybackReply) error {
	return s.playback(s.server.controller.Play, reply)
}

// Pause stops auto-advance
func (s *Service) Pause(_ *http.Request, _ *struct{}, reply *PlaybackReply) error {
	return s.playback(s.server.controller.Pause, reply)
}

// Stop stops auto-advance and rewinds to the first frame
func (s *Service) Stop(_ *http.Request, _ *struct{}, reply *PlaybackReply) error {
	return s.playback(s.server.controller.Stop, reply)
}

// StepForward moves to the next frame
func (s *Service) StepForward(_ *http.Request, _ *struct{}, reply *PlaybackReply) error {
	return s.playback(s.server.controller.StepForward, reply)
}

// StepBack moves to the previous frame
func (s *Service) StepBack(_ *http.Request, _ *struct{}, reply *PlaybackReply) error {
	return s.playback(s.server.controller.StepBack, reply)
}

// Seek moves to frame [args.Step]
func (s *Service) Seek(_ *http.Request, args *SeekArgs, reply *PlaybackReply) error {
	return s.playback(func() bool { return s.server.controller.Seek(args.Step) }, reply)
}

func (s *Service) playback(op func() bool, reply *PlaybackReply) error {
	reply.Applied = op()
	reply.State = s.server.controller.Snapshot()
	return nil
}

// GetState returns the controller's current state
func (s *Service) GetState(_ *http.Request, _ *struct{}, reply *StateReply) error {
	reply.State = s.server.controller.Snapshot()
	return nil
}

// FlowReply is the reply from GetFlow
type FlowReply struct {
	Nodes  []FlowNode `json:"nodes"`
	Cursor int        `json:"cursor"`
}

// GetFlow groups the loaded trace into per-line flow nodes
func (s *Service) GetFlow(_ *http.Request, _ *struct{}, reply *FlowReply) error {
	reply.Nodes = BuildFlow(s.server.controller.Result().trace())
	reply.Cursor = s.server.controller.Snapshot().Cursor
	return nil
}

// AskArgs are the arguments to Ask
type AskArgs struct {
	Text string `json:"text"`
	Code string `json:"code"`
	// UserID and SessionID, when both set, record the exchange in the
	// session's chat history.
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID"`
}

// Ask forwards a question to the tutor along with the loaded run's totals
func (s *Service) Ask(r *http.Request, args *AskArgs, reply *tutor.Answer) error {
	state := s.server.controller.Snapshot()
	q := tutor.Question{Text: args.Text, Code: args.Code, Steps: state.TotalSteps}
	if result := s.server.controller.Result(); result != nil && len(result.Trace) > 0 {
		q.GasUsed = result.Trace[len(result.Trace)-1].GasUsed
	}
	answer, err := s.server.assistant.Ask(requestContext(r), q)
	if err != nil {
		return err
	}
	if args.UserID != "" && args.SessionID != "" {
		s.server.recordChat(args.UserID, args.SessionID, args.Text, answer)
	}
	*reply = answer
	return nil
}

// ChatArgs identify one chat session
type ChatArgs struct {
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID"`
}

// ChatHistoryReply is the reply from GetChatHistory
type ChatHistoryReply struct {
	History ChatHistory `json:"history"`
}

// GetChatHistory fetches the recorded conversation of one session
func (s *Service) GetChatHistory(_ *http.Request, args *ChatArgs, reply *ChatHistoryReply) error {
	history, err := s.server.state.GetChatHistory(args.UserID, args.SessionID)
	if err != nil {
		return err
	}
	reply.History = history
	return nil
}

// SaveContractArgs are the arguments to SaveContract
type SaveContractArgs struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// ContractIDArgs identify one saved contract
type ContractIDArgs struct {
	ID ids.ID `json:"id"`
}

// ContractReply holds one saved contract
type ContractReply struct {
	Contract SavedContract `json:"contract"`
}

// OwnerArgs name the owner whose records are listed
type OwnerArgs struct {
	Owner string `json:"owner"`
}

// ListContractsReply is the reply from ListContracts
type ListContractsReply struct {
	Contracts []SavedContract `json:"contracts"`
}

// SaveContract inserts or replaces a named contract
func (s *Service) SaveContract(_ *http.Request, args *SaveContractArgs, reply *ContractReply) error {
	return s.server.saveContract(args, reply)
}

// GetContract fetches a saved contract by id
func (s *Service) GetContract(_ *http.Request, args *ContractIDArgs, reply *ContractReply) error {
	contract, err := s.server.state.GetContract(args.ID)
	if err != nil {
		return err
	}
	reply.Contract = contract
	return nil
}

// ListContracts lists the contracts saved by [args.Owner]
func (s *Service) ListContracts(_ *http.Request, args *OwnerArgs, reply *ListContractsReply) error {
	contracts, err := s.server.state.ListContracts(args.Owner)
	if err != nil {
		return err
	}
	reply.Contracts = contracts
	return nil
}

// DeleteContract removes a saved contract
func (s *Service) DeleteContract(_ *http.Request, args *ContractIDArgs, reply *api.SuccessResponse) error {
	if err := s.server.deleteContract(args.ID); err != nil {
		return err
	}
	reply.Success = true
	return nil
}

// ProgressArgs identify one progress record
type ProgressArgs struct {
	UserID   string `json:"userID"`
	LessonID string `json:"lessonID"`
}

// ProgressReply holds one progress record
type ProgressReply struct {
	Record ProgressRecord `json:"record"`
}

// ListProgressReply is the reply from ListProgress
type ListProgressReply struct {
	Records []ProgressRecord `json:"records"`
}

// GetProgress fetches a user's progress on one lesson
func (s *Service) GetProgress(_ *http.Request, args *ProgressArgs, reply *ProgressReply) error {
	lesson := args.LessonID
	if lesson == "" {
		lesson = DefaultLesson
	}
	record, err := s.server.state.GetProgress(args.UserID, lesson)
	if err != nil {
		return err
	}
	reply.Record = record
	return nil
}

// ListProgress lists a user's progress on every lesson
func (s *Service) ListProgress(_ *http.Request, args *OwnerArgs, reply *ListProgressReply) error {
	records, err := s.server.state.ListProgress(args.Owner)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

func requestContext(r *http.Request) context.Context {
	if r == nil {
		return context.Background()
	}
	return r.Context()
}
