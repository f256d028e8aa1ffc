// Package settlement computes what a redeemed position token is worth once a
// market has resolved.
package settlement

import "github.com/chokosabe/settlementvm/storage"

// CollateralPerToken is the fixed exchange rate: one unit of collateral mints
// one YES and one NO, and a winning token redeems for one unit.
const CollateralPerToken uint64 = 1

// Payout returns the collateral owed for redeeming amount tokens of side in a
// market that resolved to outcome. Losing and unresolved sides pay nothing.
func Payout(side, outcome storage.Outcome, amount uint64) uint64 {
	if !outcome.Valid() || side != outcome {
		return 0
	}
	return amount * CollateralPerToken
}
