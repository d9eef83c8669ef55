/*

Types for the rate/execution selector: venue configuration and quote results.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// VenueID identifies a configured execution venue. IDs are assigned by the
// administrator at configuration time and are never reused.
type VenueID uint64

// MaxVenueSlippageBps is the configuration-time cap on a venue's allowed
// slippage. Configuring a venue above this cap fails.
const MaxVenueSlippageBps uint32 = 1000

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator uint32 = 10000

// VenueConfig describes one external protocol adapter eligible for routing.
// Venues are created or updated idempotently by the administrator and are
// deactivated rather than deleted.
type VenueConfig struct {
	ID             VenueID        `json:"id"`
	Address        common.Address `json:"address"`
	IsActive       bool           `json:"is_active"`
	MaxSlippageBps uint32         `json:"max_slippage_bps"`
	GasLimit       uint64         `json:"gas_limit"` // comparison signal only, not enforced
}

// RouteQuote is the result of a best-rate selection.
type RouteQuote struct {
	VenueID     VenueID     `json:"venue_id"`
	ExpectedOut sdkmath.Int `json:"expected_out"`
	GasEstimate uint64      `json:"gas_estimate"`
}
