// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracevm

import (
	"fmt"
	"time"
)

const (
	// ExamplesOwner owns the bundled example contracts.
	ExamplesOwner = "examples"

	// examplesVersion is bumped whenever the bundled examples change so that
	// existing stores pick them up on the next start.
	examplesVersion uint32 = 1
)

// CounterSource is the contract the counter fixture was recorded from.
const CounterSource = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

contract Counter {
    uint256 public count;
    function increment() public {
        count += 1;
    }
}
`

// TokenWalletSource is a trimmed version of the wallet the token-wallet
// fixture was recorded from.
const TokenWalletSource = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

contract TokenWallet {
    address public owner;
    uint256 public balance;
    uint256 public totalTransactions;
    bool public isActive;
    string public walletName;
    uint256 public maxBalance;
    mapping(address => uint256) public userBalances;

    event Deposit(address indexed from, uint256 amount);

    constructor(string memory _name, uint256 _maxBalance) {
        owner = msg.sender;
        walletName = _name;
        maxBalance = _maxBalance;
        isActive = true;
    }

    function deposit(uint256 amount) public {
        require(isActive, "wallet inactive");
        require(amount > 0, "amount must be positive");
        require(balance + amount <= maxBalance, "max balance exceeded");
        balance += amount;
        userBalances[msg.sender] += amount;
        totalTransactions += 1;
        emit Deposit(msg.sender, amount);
    }
}
`

type example struct {
	name        string
	description string
	source      string
}

var examples = []example{
	{name: "Counter", description: "Increments a single storage slot", source: CounterSource},
	{name: "TokenWallet", description: "Deposits tokens and tracks per-user balances", source: TokenWalletSource},
}

// SeedExamples writes the bundled example contracts into [s] unless the
// current revision is already there. It does not commit.
func SeedExamples(s State, now time.Time) (bool, error) {
	seeded, err := s.SeededVersion()
	if err != nil {
		return false, fmt.Errorf("couldn't read example seed version: %w", err)
	}
	if seeded >= examplesVersion {
		return false, nil
	}
	for _, ex := range examples {
		_, err := s.PutContract(SavedContract{
			Owner:       ExamplesOwner,
			Name:        ex.name,
			Code:        ex.source,
			Description: ex.description,
			Public:      true,
			CreatedAt:   now.Unix(),
			UpdatedAt:   now.Unix(),
		})
		if err != nil {
			return false, fmt.Errorf("couldn't seed example %s: %w", ex.name, err)
		}
	}
	return true, s.SetSeededVersion(examplesVersion)
}
