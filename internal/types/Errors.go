/*

Registered error taxonomy for the ACE core. Every failing precondition
surfaces one of these so callers can distinguish the reason without parsing
message text.

*/

package types

import (
	errorsmod "cosmossdk.io/errors"
)

const Codespace = "ace"

// Input validation
var (
	ErrInvalidToken       = errorsmod.Register(Codespace, 2, "token not supported")
	ErrInvalidAmount      = errorsmod.Register(Codespace, 3, "amount must be positive")
	ErrInvalidVenueConfig = errorsmod.Register(Codespace, 4, "venue configuration is invalid")
	ErrInvalidMaxSupply   = errorsmod.Register(Codespace, 5, "max supply must be positive")
	ErrInvalidPriceRange  = errorsmod.Register(Codespace, 6, "start price must not be below end price")
	ErrInvalidSaleConfig  = errorsmod.Register(Codespace, 7, "sale configuration is invalid")
	ErrInvalidRoyalty     = errorsmod.Register(Codespace, 8, "royalty fee exceeds cap")
	ErrInvalidStrategy    = errorsmod.Register(Codespace, 9, "strategy configuration is invalid")
)

// Authorization
var (
	ErrUnauthorized = errorsmod.Register(Codespace, 10, "caller is not an administrator")
)

// State gates
var (
	ErrPaused            = errorsmod.Register(Codespace, 11, "operations are paused")
	ErrWrongPhase        = errorsmod.Register(Codespace, 12, "sale is not in the required phase")
	ErrSaleNotConfigured = errorsmod.Register(Codespace, 13, "sale has not been configured")
	ErrSaleAlreadyStarted = errorsmod.Register(Codespace, 14, "sale cannot be reconfigured after minting has started")
	ErrRevealTooEarly    = errorsmod.Register(Codespace, 15, "reveal timestamp has not been reached")
	ErrAlreadyRevealed   = errorsmod.Register(Codespace, 16, "metadata is already revealed")
	ErrReentrancy        = errorsmod.Register(Codespace, 17, "reentrant call")
)

// Quotas
var (
	ErrExceedsMaxPerWallet = errorsmod.Register(Codespace, 18, "quantity exceeds per-wallet cap")
	ErrSoldOut             = errorsmod.Register(Codespace, 19, "insufficient remaining supply")
	ErrNotAllowlisted      = errorsmod.Register(Codespace, 29, "wallet is not allowlisted")
)

// Economic guards
var (
	ErrInsufficientPayment = errorsmod.Register(Codespace, 20, "payment below required price")
	ErrInsufficientOutput  = errorsmod.Register(Codespace, 21, "output below caller minimum")
	ErrExpired             = errorsmod.Register(Codespace, 22, "deadline has passed")
)

// Routing
var (
	ErrNoViableVenue = errorsmod.Register(Codespace, 23, "no active configured venue")
)

// Custody
var (
	ErrInsufficientBalance   = errorsmod.Register(Codespace, 24, "insufficient balance")
	ErrInsufficientAllowance = errorsmod.Register(Codespace, 25, "insufficient allowance")
)

// Treasury
var (
	ErrRebalanceTooSoon    = errorsmod.Register(Codespace, 26, "rebalance interval has not elapsed")
	ErrInsufficientShares  = errorsmod.Register(Codespace, 27, "insufficient shares")
	ErrUnknownTokenID      = errorsmod.Register(Codespace, 28, "token id does not exist")
)
