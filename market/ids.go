package market

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/hypersdk/codec"
)

const (
	yesMintSalt uint64 = iota + 1
	noMintSalt
	vaultSalt
)

// DeriveAccounts returns the YES mint, NO mint and vault identities of
// marketID. Callers that must declare state access before execution use them
// to know every key a market operation touches.
func DeriveAccounts(marketID ids.ID) (yesMint ids.ID, noMint ids.ID, vault ids.ID) {
	return marketID.Prefix(yesMintSalt), marketID.Prefix(noMintSalt), marketID.Prefix(vaultSalt)
}

// DeriveParams fills CreateParams with identities derived from marketID.
func DeriveParams(authority codec.Address, description string, resolutionTimestamp int64, marketID ids.ID) CreateParams {
	yes, no, vault := DeriveAccounts(marketID)
	return CreateParams{
		Authority:           authority,
		Description:         description,
		ResolutionTimestamp: resolutionTimestamp,
		MarketID:            marketID,
		YesMint:             yes,
		NoMint:              no,
		Vault:               vault,
	}
}
