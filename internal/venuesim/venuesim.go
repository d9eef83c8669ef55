/*

A constant-product venue used wherever a real external protocol adapter is
not wired in: local runs and tests. Quote and Swap share one pricing path so
an estimate always matches the execution that follows it in the same state.

*/

package venuesim

import (
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
)

var venueLogger = logger.GetForComponent("venue_simulator")

type pairKey struct {
	tokenIn  common.Address
	tokenOut common.Address
}

type reserves struct {
	in  sdkmath.Int
	out sdkmath.Int
}

// Venue is a simulated AMM holding directional reserves per pair. Output
// follows x*y=k with a flat fee in basis points taken from the input.
type Venue struct {
	mu      sync.Mutex
	account common.Address
	bank    *custody.Bank
	feeBps  uint32
	gasCost uint64
	pools   map[pairKey]*reserves
}

// NewVenue creates a venue settling through the given custody account.
func NewVenue(bank *custody.Bank, account common.Address, feeBps uint32, gasCost uint64) *Venue {
	return &Venue{
		account: account,
		bank:    bank,
		feeBps:  feeBps,
		gasCost: gasCost,
		pools:   make(map[pairKey]*reserves),
	}
}

// SetReserves seeds liquidity for a directional pair and credits the venue's
// custody account with the output-side inventory it may pay out.
func (v *Venue) SetReserves(tokenIn, tokenOut common.Address, reserveIn, reserveOut sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return types.ErrInvalidAmount.Wrap("reserves must be positive")
	}
	v.pools[pairKey{tokenIn, tokenOut}] = &reserves{in: reserveIn, out: reserveOut}
	return v.bank.Credit(tokenOut, v.account, reserveOut)
}

// Quote implements router.ProtocolAdapter.
func (v *Venue) Quote(tokenIn, tokenOut common.Address, amountIn sdkmath.Int) (sdkmath.Int, uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out, _, err := v.expectedOut(tokenIn, tokenOut, amountIn)
	if err != nil {
		return sdkmath.ZeroInt(), 0, err
	}
	return out, v.gasCost, nil
}

// Swap implements router.ProtocolAdapter: takes the input from recipient's
// account, pays the output from venue inventory and moves the pool state.
func (v *Venue) Swap(tokenIn, tokenOut common.Address, amountIn sdkmath.Int, recipient common.Address) (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out, pool, err := v.expectedOut(tokenIn, tokenOut, amountIn)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := v.bank.PushTo(tokenIn, recipient, v.account, amountIn); err != nil {
		return sdkmath.ZeroInt(), err
	}
	if err := v.bank.PushTo(tokenOut, v.account, recipient, out); err != nil {
		return sdkmath.ZeroInt(), err
	}
	prevIn, prevOut := pool.in, pool.out
	pool.in = pool.in.Add(amountIn)
	pool.out = pool.out.Sub(out)
	// The bank journal restores balances on rollback; the reserves must
	// follow, or later quotes would price against a trade that never settled.
	v.bank.OnRollback(func() {
		v.mu.Lock()
		pool.in = prevIn
		pool.out = prevOut
		v.mu.Unlock()
	})

	venueLogger.Debug().
		Str("tokenIn", tokenIn.Hex()).
		Str("tokenOut", tokenOut.Hex()).
		Str("amountIn", amountIn.String()).
		Str("amountOut", out.String()).
		Msg("Simulated swap settled")
	return out, nil
}

// expectedOut prices amountIn against the pair's reserves. Caller holds the
// mutex.
func (v *Venue) expectedOut(tokenIn, tokenOut common.Address, amountIn sdkmath.Int) (sdkmath.Int, *reserves, error) {
	pool, ok := v.pools[pairKey{tokenIn, tokenOut}]
	if !ok {
		return sdkmath.ZeroInt(), nil, types.ErrInvalidToken.Wrapf("no liquidity for %s -> %s", tokenIn.Hex(), tokenOut.Hex())
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return sdkmath.ZeroInt(), nil, types.ErrInvalidAmount
	}

	// out = reserveOut * effectiveIn / (reserveIn + effectiveIn), with the
	// fee shaved off the input first.
	effectiveIn := amountIn.
		MulRaw(int64(types.BpsDenominator - v.feeBps)).
		QuoRaw(int64(types.BpsDenominator))
	out := pool.out.Mul(effectiveIn).Quo(pool.in.Add(effectiveIn))
	if !out.IsPositive() || out.GTE(pool.out) {
		return sdkmath.ZeroInt(), nil, types.ErrInvalidAmount.Wrap("trade exceeds pool depth")
	}
	return out, pool, nil
}
