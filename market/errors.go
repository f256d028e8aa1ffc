package market

import "errors"

var (
	ErrDuplicateMarket     = errors.New("market already exists")
	ErrInvalidDescription  = errors.New("invalid market description")
	ErrInvalidTimestamp    = errors.New("resolution timestamp must be in the future")
	ErrUnauthorized        = errors.New("caller is not the market authority")
	ErrTooEarly            = errors.New("market cannot be resolved before its resolution timestamp")
	ErrAlreadyResolved     = errors.New("market is already resolved")
	ErrMarketResolved      = errors.New("market is resolved")
	ErrMarketNotResolved   = errors.New("market is not resolved")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidOutcome      = errors.New("invalid outcome")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInsufficientBalance = errors.New("insufficient position balance")

	ErrMarketNotFound     = errors.New("market not found")
	ErrInvalidMarketID    = errors.New("market identity must be non-empty")
	ErrInvalidMint        = errors.New("mint identities must be distinct and unused")
	ErrInvalidVault       = errors.New("vault identity must be unused")
	ErrInvariantViolation = errors.New("collateral conservation violated")
	ErrConflict           = errors.New("state changed since the operation read it")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrDuplicateMarket, "DuplicateMarket"},
	{ErrInvalidDescription, "InvalidDescription"},
	{ErrInvalidTimestamp, "InvalidTimestamp"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrTooEarly, "TooEarly"},
	{ErrAlreadyResolved, "AlreadyResolved"},
	{ErrMarketResolved, "MarketResolved"},
	{ErrMarketNotResolved, "MarketNotResolved"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInvalidOutcome, "InvalidOutcome"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrMarketNotFound, "MarketNotFound"},
	{ErrInvalidMarketID, "InvalidMarketId"},
	{ErrInvalidMint, "InvalidMint"},
	{ErrInvalidVault, "InvalidVault"},
	{ErrInvariantViolation, "InvariantViolation"},
	{ErrConflict, "Conflict"},
}

// ErrorCode returns the stable name of the failure kind carried by err, "" for
// nil and "Internal" for anything outside the taxonomy.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}
