// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consts

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/version"
)

const (
	Name   = "settlementvm"
	Symbol = "PRED"
	HRP    = "pred"

	// Decimals of the native collateral token and of every position mint.
	Decimals uint8 = 6

	MillisecondsPerSecond int64 = 1000
)

// Action and result type IDs. A result shares the ID of the action that
// produced it.
const (
	CreateMarketID uint8 = iota
	DepositAndMintID
	ResolveID
	RedeemID
)

const (
	// MaxDescriptionLength bounds the question text of a market.
	MaxDescriptionLength = 256

	// MaxActionSize bounds the encoded size of any action.
	MaxActionSize = 1024

	// MaxMarketDataSize bounds a marshaled market record.
	MaxMarketDataSize = 1024

	Uint16Len = 2
)

var ID ids.ID

func init() {
	b := make([]byte, ids.IDLen)
	copy(b, []byte(Name))
	vmID, err := ids.ToID(b)
	if err != nil {
		panic(err)
	}
	ID = vmID
}

var Version = &version.Semantic{
	Major: 0,
	Minor: 1,
	Patch: 0,
}
