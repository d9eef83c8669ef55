/*

Dutch-auction clearing price. Linear interpolation from start price to end
price over the auction duration, computed in integer arithmetic on the
payment asset's smallest unit. The per-elapsed decrement is truncated, so the
price itself rounds toward the seller.

*/

package auction

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/atrium-fi/ace/internal/types"
)

// PriceAt returns the clearing price at the given instant. Before the public
// sale starts it equals the start price; at or beyond the auction duration it
// stays pinned at the end price.
func PriceAt(now time.Time, config *types.SaleConfig) (sdkmath.Int, error) {
	if config == nil {
		return sdkmath.ZeroInt(), types.ErrSaleNotConfigured
	}

	elapsed := now.Sub(config.PublicSaleStart)
	if elapsed <= 0 {
		return config.StartPrice, nil
	}
	if elapsed >= config.AuctionDuration {
		return config.EndPrice, nil
	}

	elapsedSec := int64(elapsed / time.Second)
	durationSec := int64(config.AuctionDuration / time.Second)

	// decrement = (start - end) * t / duration, truncated. Truncating the
	// decrement keeps the resulting price at or above the exact curve.
	span := config.StartPrice.Sub(config.EndPrice)
	decrement := span.MulRaw(elapsedSec).QuoRaw(durationSec)
	return config.StartPrice.Sub(decrement), nil
}
