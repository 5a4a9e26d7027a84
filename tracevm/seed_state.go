// Copyright (C) 2019-2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"encoding/binary"
	"errors"

	"github.com/ava-labs/avalanchego/database"
)

var (
	seededVersionKey = []byte("seededExamples")

	errBadSeedVersion = errors.New("stored example seed version is malformed")

	_ SeedState = (*seedState)(nil)
)

// SeedState records which revision of the bundled example contracts has
// been written to the store.
type SeedState interface {
	// SeededVersion returns 0 when no examples were ever seeded.
	SeededVersion() (uint32, error)
	SetSeededVersion(version uint32) error
}

type seedState struct {
	singletonDB database.Database
}

func NewSeedState(db database.Database) SeedState {
	return &seedState{
		singletonDB: db,
	}
}

func (s *seedState) SeededVersion() (uint32, error) {
	raw, err := s.singletonDB.Get(seededVersionKey)
	if err == database.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, errBadSeedVersion
	}
	return binary.BigEndian.Uint32(raw), nil
}

func (s *seedState) SetSeededVersion(version uint32) error {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, version)
	return s.singletonDB.Put(seededVersionKey, raw)
}
