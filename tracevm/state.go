// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/prefixdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// These are prefixes for db keys.
	// It's important to set different prefixes for each separate database objects.
	singletonStatePrefix = []byte("singleton")
	progressStatePrefix  = []byte("progress")
	contractStatePrefix  = []byte("contract")
	ownerIndexPrefix     = []byte("owner")
	chatStatePrefix      = []byte("chat")

	_ State = &state{}
)

// State is the persistence collaborator of the service: lesson progress,
// saved contracts and tutor chat history, plus the example seed marker.
// Writes are buffered until Commit.
type State interface {
	SeedState
	ProgressState
	ContractState
	ChatState

	Commit() error
	// Abort drops every write since the last Commit.
	Abort()
	Close() error
}

type state struct {
	SeedState
	ProgressState
	ContractState
	ChatState

	baseDB *versiondb.Database
}

// NewState layers the stores over [db]. Metrics are registered with
// [registerer] when it is non-nil.
func NewState(db database.Database, registerer prometheus.Registerer) (State, error) {
	// create a new baseDB
	baseDB := versiondb.New(db)

	singletonDB := prefixdb.New(singletonStatePrefix, baseDB)
	progressDB := prefixdb.New(progressStatePrefix, baseDB)
	contractDB := prefixdb.New(contractStatePrefix, baseDB)
	ownerDB := prefixdb.New(ownerIndexPrefix, baseDB)
	chatDB := prefixdb.New(chatStatePrefix, baseDB)

	contractState, err := NewContractState(contractDB, ownerDB, registerer)
	if err != nil {
		return nil, err
	}
	return &state{
		SeedState:     NewSeedState(singletonDB),
		ProgressState: NewProgressState(progressDB),
		ContractState: contractState,
		ChatState:     NewChatState(chatDB),
		baseDB:        baseDB,
	}, nil
}

// Commit commits pending operations to baseDB
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

// Abort discards pending operations
func (s *state) Abort() {
	s.baseDB.Abort()
}

// Close closes the underlying base database
func (s *state) Close() error {
	return s.baseDB.Close()
}
