/*

The rate/execution selector. Every configured venue is queried for a quote;
the venue with the greatest expected output wins, ties going to the lowest
venue id. Execution re-runs selection at call time (no price is locked
between quote and execute) and commits all-or-nothing through the custody
journal.

*/

package router

import (
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
)

var routerLogger = logger.GetForComponent("route_selector")

// Engine holds the venue registry and executes swaps against the best venue.
type Engine struct {
	admin   guard.AdminCapability
	pause   *guard.PauseGate
	lock    *guard.ReentrancyGuard
	bank    *custody.Bank
	account common.Address
	nowFn   func() time.Time

	venues    map[types.VenueID]types.VenueConfig
	adapters  map[types.VenueID]ProtocolAdapter
	supported map[common.Address]bool
	recorder  Recorder
}

// Config holds the collaborators an Engine is constructed with.
type Config struct {
	Admin    guard.AdminCapability
	Pause    *guard.PauseGate
	Bank     *custody.Bank
	Account  common.Address // the engine's own custody account
	Recorder Recorder       // optional
	NowFn    func() time.Time
}

// NewEngine creates a router engine with no venues configured.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Admin == nil {
		return nil, types.ErrInvalidVenueConfig.Wrap("admin capability cannot be nil")
	}
	if cfg.Pause == nil {
		return nil, types.ErrInvalidVenueConfig.Wrap("pause gate cannot be nil")
	}
	if cfg.Bank == nil {
		return nil, types.ErrInvalidVenueConfig.Wrap("custody bank cannot be nil")
	}
	if cfg.Account == (common.Address{}) {
		return nil, types.ErrInvalidVenueConfig.Wrap("engine custody account cannot be the zero address")
	}
	nowFn := cfg.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Engine{
		admin:     cfg.Admin,
		pause:     cfg.Pause,
		lock:      guard.NewReentrancyGuard(),
		bank:      cfg.Bank,
		account:   cfg.Account,
		nowFn:     nowFn,
		venues:    make(map[types.VenueID]types.VenueConfig),
		adapters:  make(map[types.VenueID]ProtocolAdapter),
		supported: make(map[common.Address]bool),
		recorder:  cfg.Recorder,
	}, nil
}

// ConfigureVenue creates or updates a venue. Idempotent; venues are never
// deleted, only deactivated by reconfiguring with IsActive false.
func (e *Engine) ConfigureVenue(caller common.Address, cfg types.VenueConfig, adapter ProtocolAdapter) error {
	if !e.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if cfg.Address == (common.Address{}) {
		return types.ErrInvalidVenueConfig.Wrap("venue address cannot be the zero address")
	}
	if cfg.MaxSlippageBps > types.MaxVenueSlippageBps {
		return types.ErrInvalidVenueConfig.Wrapf("max slippage %d bps exceeds cap of %d", cfg.MaxSlippageBps, types.MaxVenueSlippageBps)
	}
	if adapter == nil {
		return types.ErrInvalidVenueConfig.Wrap("venue adapter cannot be nil")
	}

	e.venues[cfg.ID] = cfg
	e.adapters[cfg.ID] = adapter

	routerLogger.Info().
		Uint64("venueID", uint64(cfg.ID)).
		Str("address", cfg.Address.Hex()).
		Bool("isActive", cfg.IsActive).
		Uint32("maxSlippageBps", cfg.MaxSlippageBps).
		Msg("Venue configured")
	return nil
}

// SetTokenSupported adds or removes a token from the routing set.
func (e *Engine) SetTokenSupported(caller, token common.Address, isSupported bool) error {
	if !e.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if isSupported {
		e.supported[token] = true
	} else {
		delete(e.supported, token)
	}
	routerLogger.Info().
		Str("token", token.Hex()).
		Bool("supported", isSupported).
		Msg("Supported-token set updated")
	return nil
}

// IsTokenSupported reports membership in the routing set.
func (e *Engine) IsTokenSupported(token common.Address) bool {
	return e.supported[token]
}

// Venue returns the configuration of a venue, if present.
func (e *Engine) Venue(id types.VenueID) (types.VenueConfig, bool) {
	cfg, ok := e.venues[id]
	return cfg, ok
}

// GetBestRate queries every active venue for the given pair and amount and
// returns the venue with the greatest expected output. Pure read: no
// capacity is reserved and no price is locked.
func (e *Engine) GetBestRate(tokenIn, tokenOut common.Address, amount sdkmath.Int) (types.RouteQuote, error) {
	if err := e.validatePair(tokenIn, tokenOut, amount); err != nil {
		return types.RouteQuote{}, err
	}
	return e.selectBestVenue(tokenIn, tokenOut, amount)
}

// selectBestVenue iterates venue ids in ascending order so an exact tie on
// expected output deterministically resolves to the lowest id.
func (e *Engine) selectBestVenue(tokenIn, tokenOut common.Address, amount sdkmath.Int) (types.RouteQuote, error) {
	ids := make([]types.VenueID, 0, len(e.venues))
	for id := range e.venues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var (
		best  types.RouteQuote
		found bool
	)
	for _, id := range ids {
		cfg := e.venues[id]
		if !cfg.IsActive || cfg.Address == (common.Address{}) {
			continue
		}
		adapter := e.adapters[id]
		if adapter == nil {
			continue
		}
		out, gasCost, err := adapter.Quote(tokenIn, tokenOut, amount)
		if err != nil {
			routerLogger.Warn().
				Err(err).
				Uint64("venueID", uint64(id)).
				Msg("Venue quote failed; excluding from selection")
			continue
		}
		if out.IsNil() || !out.IsPositive() {
			continue
		}
		if !found || out.GT(best.ExpectedOut) {
			best = types.RouteQuote{VenueID: id, ExpectedOut: out, GasEstimate: gasCost}
			found = true
		}
	}
	if !found {
		return types.RouteQuote{}, types.ErrNoViableVenue
	}

	routerLogger.Debug().
		Uint64("venueID", uint64(best.VenueID)).
		Str("expectedOut", best.ExpectedOut.String()).
		Uint64("gasEstimate", best.GasEstimate).
		Msg("Best venue selected")
	return best, nil
}

// ExecuteSwap pulls amount of tokenIn from caller, trades it on the venue
// selected at execution time, enforces minOut and the deadline, and pushes
// the output back to caller. Any failure rolls the entire operation back.
func (e *Engine) ExecuteSwap(caller, tokenIn, tokenOut common.Address, amount, minOut sdkmath.Int, deadline time.Time) (sdkmath.Int, error) {
	if err := e.lock.Enter(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer e.lock.Exit()

	now := e.nowFn()
	if now.After(deadline) {
		return sdkmath.ZeroInt(), types.ErrExpired.Wrapf("deadline %s, now %s", deadline.UTC(), now.UTC())
	}
	if e.pause.IsPaused() {
		return sdkmath.ZeroInt(), types.ErrPaused
	}
	if err := e.validatePair(tokenIn, tokenOut, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	e.bank.Begin()
	committed := false
	defer func() {
		if !committed {
			e.bank.Rollback()
		}
	}()

	if err := e.bank.PullFrom(tokenIn, caller, e.account, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	// Selection is re-run at execution time; a prior GetBestRate quote is
	// informational only.
	best, err := e.selectBestVenue(tokenIn, tokenOut, amount)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	adapter := e.adapters[best.VenueID]
	out, err := adapter.Swap(tokenIn, tokenOut, amount, e.account)
	if err != nil {
		return sdkmath.ZeroInt(), types.ErrNoViableVenue.Wrapf("venue %d swap failed: %s", best.VenueID, err)
	}
	if out.IsNil() || out.LT(minOut) {
		return sdkmath.ZeroInt(), types.ErrInsufficientOutput.Wrapf("got %s, want at least %s", out, minOut)
	}

	if err := e.bank.PushTo(tokenOut, e.account, caller, out); err != nil {
		return sdkmath.ZeroInt(), err
	}

	e.bank.Commit()
	committed = true

	record := types.SwapRecord{
		ID:        uuid.New().String(),
		Caller:    caller,
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amount,
		AmountOut: out,
		VenueID:   best.VenueID,
		Timestamp: now,
	}
	if e.recorder != nil {
		e.recorder.RecordSwap(record)
	}

	routerLogger.Info().
		Str("recordID", record.ID).
		Str("caller", caller.Hex()).
		Str("tokenIn", tokenIn.Hex()).
		Str("tokenOut", tokenOut.Hex()).
		Str("amountIn", amount.String()).
		Str("amountOut", out.String()).
		Uint64("venueID", uint64(best.VenueID)).
		Msg("Swap executed")
	return out, nil
}

func (e *Engine) validatePair(tokenIn, tokenOut common.Address, amount sdkmath.Int) error {
	if !e.supported[tokenIn] {
		return types.ErrInvalidToken.Wrapf("tokenIn %s", tokenIn.Hex())
	}
	if !e.supported[tokenOut] {
		return types.ErrInvalidToken.Wrapf("tokenOut %s", tokenOut.Hex())
	}
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	return nil
}
