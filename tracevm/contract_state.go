// (c) 2021, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"errors"
	"math"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	contractCacheSize = 1024
)

var (
	errMissingOwner = errors.New("contract owner is required")
	errMissingName  = errors.New("contract name is required")

	_ ContractState = &contractState{}
)

// SavedContract is a named piece of source text kept for a user.
type SavedContract struct {
	ID          ids.ID `serialize:"true" json:"id"`
	Owner       string `serialize:"true" json:"owner"`
	Name        string `serialize:"true" json:"name"`
	Code        string `serialize:"true" json:"code"`
	Description string `serialize:"true" json:"description"`
	Public      bool   `serialize:"true" json:"public"`
	CreatedAt   int64  `serialize:"true" json:"createdAt"`
	UpdatedAt   int64  `serialize:"true" json:"updatedAt"`
}

// ContractID is the id a contract named [name] saved by [owner] is stored
// under.
func ContractID(owner, name string) ids.ID {
	preimage := make([]byte, 0, len(owner)+len(name)+1)
	preimage = append(preimage, owner...)
	preimage = append(preimage, 0)
	preimage = append(preimage, name...)
	return ids.ID(hashing.ComputeHash256Array(preimage))
}

type ContractState interface {
	// PutContract inserts or replaces the contract, keyed by
	// ContractID(Owner, Name). CreatedAt of an existing contract is kept.
	PutContract(contract SavedContract) (SavedContract, error)
	GetContract(id ids.ID) (SavedContract, error)
	ListContracts(owner string) ([]SavedContract, error)
	DeleteContract(id ids.ID) error
}

type contractState struct {
	cache      cache.Cacher
	contractDB database.Database
	ownerDB    database.Database
}

// NewContractState returns a contract store over [contractDB] indexed by
// owner in [ownerDB]. Cache hits and misses are reported to [registerer]
// when it is non-nil.
func NewContractState(contractDB, ownerDB database.Database, registerer prometheus.Registerer) (ContractState, error) {
	var contractCache cache.Cacher = &cache.LRU{Size: contractCacheSize}
	if registerer != nil {
		metered, err := metercacher.New("contract_cache", registerer, contractCache)
		if err != nil {
			return nil, err
		}
		contractCache = metered
	}
	return &contractState{
		cache:      contractCache,
		contractDB: contractDB,
		ownerDB:    ownerDB,
	}, nil
}

func ownerKey(owner string, id ids.ID) []byte {
	return append(userPrefix(owner), id[:]...)
}

func (s *contractState) PutContract(contract SavedContract) (SavedContract, error) {
	switch {
	case contract.Owner == "":
		return SavedContract{}, errMissingOwner
	case contract.Name == "":
		return SavedContract{}, errMissingName
	case len(contract.Code) > math.MaxUint16, len(contract.Description) > math.MaxUint16:
		return SavedContract{}, errFieldTooLong
	}
	contract.ID = ContractID(contract.Owner, contract.Name)
	if existing, err := s.GetContract(contract.ID); err == nil {
		contract.CreatedAt = existing.CreatedAt
	} else if err != database.ErrNotFound {
		return SavedContract{}, err
	}

	bytes, err := Codec.Marshal(CodecVersion, &contract)
	if err != nil {
		return SavedContract{}, err
	}
	if err := s.contractDB.Put(contract.ID[:], bytes); err != nil {
		return SavedContract{}, err
	}
	if err := s.ownerDB.Put(ownerKey(contract.Owner, contract.ID), nil); err != nil {
		return SavedContract{}, err
	}
	s.cache.Put(contract.ID, contract)
	return contract, nil
}

func (s *contractState) GetContract(id ids.ID) (SavedContract, error) {
	if cached, ok := s.cache.Get(id); ok {
		if cached == nil {
			return SavedContract{}, database.ErrNotFound
		}
		return cached.(SavedContract), nil
	}

	bytes, err := s.contractDB.Get(id[:])
	if err == database.ErrNotFound {
		s.cache.Put(id, nil)
		return SavedContract{}, err
	}
	if err != nil {
		return SavedContract{}, err
	}

	contract := SavedContract{}
	parsedVersion, err := Codec.Unmarshal(bytes, &contract)
	if err != nil {
		return SavedContract{}, err
	}
	if parsedVersion != CodecVersion {
		return SavedContract{}, errWrongVersion
	}
	s.cache.Put(id, contract)
	return contract, nil
}

func (s *contractState) ListContracts(owner string) ([]SavedContract, error) {
	if owner == "" {
		return nil, errMissingOwner
	}
	prefix := userPrefix(owner)
	it := s.ownerDB.NewIteratorWithPrefix(prefix)
	defer it.Release()

	contracts := []SavedContract{}
	for it.Next() {
		id, err := ids.ToID(it.Key()[len(prefix):])
		if err != nil {
			return nil, err
		}
		contract, err := s.GetContract(id)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, contract)
	}
	return contracts, it.Error()
}

func (s *contractState) DeleteContract(id ids.ID) error {
	contract, err := s.GetContract(id)
	if err != nil {
		return err
	}
	if err := s.ownerDB.Delete(ownerKey(contract.Owner, id)); err != nil {
		return err
	}
	if err := s.contractDB.Delete(id[:]); err != nil {
		return err
	}
	s.cache.Put(id, nil)
	return nil
}
