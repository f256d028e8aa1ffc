package actions

const (
	// CreateMarketComputeUnits covers four fresh records: market, two mints
	// and the vault.
	CreateMarketComputeUnits uint64 = 100

	// DepositAndMintComputeUnits covers the balance debit, the vault credit
	// and two mints.
	DepositAndMintComputeUnits uint64 = 60

	ResolveComputeUnits uint64 = 20

	// RedeemComputeUnits covers a burn and, for the winning side, a vault
	// withdrawal.
	RedeemComputeUnits uint64 = 60
)
