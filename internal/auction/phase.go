/*

Effective sale phase, derived from the wall clock and counters at call time.
No phase is ever stored, so stored and actual phase cannot desynchronize.

*/

package auction

import (
	"time"

	"github.com/atrium-fi/ace/internal/types"
)

// PhaseAt computes the effective phase of a sale. A nil config means the
// sale was never configured; a fully minted supply dominates the clock.
func PhaseAt(now time.Time, config *types.SaleConfig, totalMinted uint64) types.SalePhase {
	if config == nil {
		return types.PhaseUnconfigured
	}
	if totalMinted >= config.MaxSupply {
		return types.PhaseSoldOut
	}
	if now.Before(config.PublicSaleStart) {
		return types.PhaseAllowlist
	}
	return types.PhasePublic
}
