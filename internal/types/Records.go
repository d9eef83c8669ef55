/*

Emitted records for off-chain observers. Every state-changing operation that
completes produces exactly one record; failed operations produce none.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// SwapRecord is emitted on every successful ExecuteSwap.
type SwapRecord struct {
	ID        string         `json:"id"`
	Caller    common.Address `json:"caller"`
	TokenIn   common.Address `json:"token_in"`
	TokenOut  common.Address `json:"token_out"`
	AmountIn  sdkmath.Int    `json:"amount_in"`
	AmountOut sdkmath.Int    `json:"amount_out"`
	VenueID   VenueID        `json:"venue_id"`
	Timestamp time.Time      `json:"timestamp"`
}

// MintRecord is emitted on every successful allowlist or public mint.
type MintRecord struct {
	ID        string         `json:"id"`
	Wallet    common.Address `json:"wallet"`
	TokenIDs  []uint64       `json:"token_ids"`
	PricePaid sdkmath.Int    `json:"price_paid"`
	Phase     SalePhase      `json:"phase"`
	Timestamp time.Time      `json:"timestamp"`
}

// RevealRecord is emitted once, when metadata is revealed.
type RevealRecord struct {
	Caller    common.Address `json:"caller"`
	Timestamp time.Time      `json:"timestamp"`
}

// WithdrawalRecord is emitted on every administrator revenue withdrawal.
type WithdrawalRecord struct {
	Recipient common.Address `json:"recipient"`
	Amount    sdkmath.Int    `json:"amount"`
	Timestamp time.Time      `json:"timestamp"`
}
