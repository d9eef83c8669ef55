package router_test

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/router"
	"github.com/atrium-fi/ace/internal/types"
	"github.com/atrium-fi/ace/internal/venuesim"
)

var (
	routerAdmin   = common.HexToAddress("0x0000000000000000000000000000000000000AD1")
	engineAccount = common.HexToAddress("0x0000000000000000000000000000000000000E0A")
	trader        = common.HexToAddress("0x0000000000000000000000000000000000000701")
	tokenA        = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	tokenB        = common.HexToAddress("0x00000000000000000000000000000000000000BB")
	venueAddr     = common.HexToAddress("0x0000000000000000000000000000000000000101")
)

// stubAdapter returns a fixed quote. A nil swapOut makes Swap fail.
type stubAdapter struct {
	out      sdkmath.Int
	gas      uint64
	quoteErr error
	swapOut  sdkmath.Int
	swapErr  error
}

func (s *stubAdapter) Quote(_, _ common.Address, _ sdkmath.Int) (sdkmath.Int, uint64, error) {
	if s.quoteErr != nil {
		return sdkmath.ZeroInt(), 0, s.quoteErr
	}
	return s.out, s.gas, nil
}

func (s *stubAdapter) Swap(_, _ common.Address, _ sdkmath.Int, _ common.Address) (sdkmath.Int, error) {
	if s.swapErr != nil {
		return sdkmath.ZeroInt(), s.swapErr
	}
	return s.swapOut, nil
}

func newTestEngine(t *testing.T, now *time.Time) (*router.Engine, *custody.Bank, *guard.PauseGate) {
	t.Helper()
	bank := custody.NewBank()
	pause := guard.NewPauseGate()
	engine, err := router.NewEngine(router.Config{
		Admin:   guard.NewStaticAdmin(routerAdmin),
		Pause:   pause,
		Bank:    bank,
		Account: engineAccount,
		NowFn:   func() time.Time { return *now },
	})
	require.NoError(t, err)
	require.NoError(t, engine.SetTokenSupported(routerAdmin, tokenA, true))
	require.NoError(t, engine.SetTokenSupported(routerAdmin, tokenB, true))
	return engine, bank, pause
}

func addVenue(t *testing.T, engine *router.Engine, id types.VenueID, active bool, adapter router.ProtocolAdapter) {
	t.Helper()
	cfg := types.VenueConfig{
		ID:             id,
		Address:        venueAddr,
		IsActive:       active,
		MaxSlippageBps: 300,
		GasLimit:       200_000,
	}
	require.NoError(t, engine.ConfigureVenue(routerAdmin, cfg, adapter))
}

func TestConfigureVenueValidation(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)
	adapter := &stubAdapter{out: sdkmath.NewInt(1)}

	cfg := types.VenueConfig{ID: 1, Address: venueAddr, IsActive: true, MaxSlippageBps: 300}

	require.ErrorIs(t, engine.ConfigureVenue(trader, cfg, adapter), types.ErrUnauthorized)

	bad := cfg
	bad.Address = common.Address{}
	require.ErrorIs(t, engine.ConfigureVenue(routerAdmin, bad, adapter), types.ErrInvalidVenueConfig)

	bad = cfg
	bad.MaxSlippageBps = types.MaxVenueSlippageBps + 1
	require.ErrorIs(t, engine.ConfigureVenue(routerAdmin, bad, adapter), types.ErrInvalidVenueConfig)

	require.ErrorIs(t, engine.ConfigureVenue(routerAdmin, cfg, nil), types.ErrInvalidVenueConfig)

	require.NoError(t, engine.ConfigureVenue(routerAdmin, cfg, adapter))
	stored, ok := engine.Venue(1)
	require.True(t, ok)
	require.True(t, stored.IsActive)

	// Reconfiguring the same id deactivates in place.
	cfg.IsActive = false
	require.NoError(t, engine.ConfigureVenue(routerAdmin, cfg, adapter))
	stored, _ = engine.Venue(1)
	require.False(t, stored.IsActive)
}

func TestGetBestRatePicksGreatestOutput(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)

	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(900), gas: 100})
	addVenue(t, engine, 2, true, &stubAdapter{out: sdkmath.NewInt(1_100), gas: 200})
	addVenue(t, engine, 3, true, &stubAdapter{out: sdkmath.NewInt(1_000), gas: 50})

	quote, err := engine.GetBestRate(tokenA, tokenB, sdkmath.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, types.VenueID(2), quote.VenueID)
	require.Equal(t, sdkmath.NewInt(1_100), quote.ExpectedOut)
	require.Equal(t, uint64(200), quote.GasEstimate)
}

func TestGetBestRateTieGoesToLowestVenueID(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)

	addVenue(t, engine, 7, true, &stubAdapter{out: sdkmath.NewInt(1_000)})
	addVenue(t, engine, 3, true, &stubAdapter{out: sdkmath.NewInt(1_000)})
	addVenue(t, engine, 5, true, &stubAdapter{out: sdkmath.NewInt(1_000)})

	quote, err := engine.GetBestRate(tokenA, tokenB, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, types.VenueID(3), quote.VenueID)
}

func TestGetBestRateSkipsUnusableVenues(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)

	addVenue(t, engine, 1, false, &stubAdapter{out: sdkmath.NewInt(2_000)})
	addVenue(t, engine, 2, true, &stubAdapter{quoteErr: types.ErrInvalidToken})
	addVenue(t, engine, 3, true, &stubAdapter{out: sdkmath.ZeroInt()})
	addVenue(t, engine, 4, true, &stubAdapter{out: sdkmath.NewInt(500)})

	quote, err := engine.GetBestRate(tokenA, tokenB, sdkmath.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, types.VenueID(4), quote.VenueID)
}

func TestGetBestRateWithNoVenues(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)

	_, err := engine.GetBestRate(tokenA, tokenB, sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrNoViableVenue)

	addVenue(t, engine, 1, false, &stubAdapter{out: sdkmath.NewInt(100)})
	_, err = engine.GetBestRate(tokenA, tokenB, sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrNoViableVenue)
}

func TestGetBestRateValidatesPair(t *testing.T) {
	now := time.Now()
	engine, _, _ := newTestEngine(t, &now)
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100)})

	other := common.HexToAddress("0x00000000000000000000000000000000000000CC")
	_, err := engine.GetBestRate(other, tokenB, sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrInvalidToken)
	_, err = engine.GetBestRate(tokenA, other, sdkmath.NewInt(100))
	require.ErrorIs(t, err, types.ErrInvalidToken)
	_, err = engine.GetBestRate(tokenA, tokenB, sdkmath.ZeroInt())
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestExecuteSwapSettlesThroughBestVenue(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)

	shallow := venuesim.NewVenue(bank, common.HexToAddress("0x0000000000000000000000000000000000000101"), 30, 100_000)
	deep := venuesim.NewVenue(bank, common.HexToAddress("0x0000000000000000000000000000000000000102"), 30, 100_000)
	require.NoError(t, shallow.SetReserves(tokenA, tokenB, sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000)))
	require.NoError(t, deep.SetReserves(tokenA, tokenB, sdkmath.NewInt(10_000_000), sdkmath.NewInt(10_000_000)))

	addVenueWithAdapter(t, engine, 1, shallow)
	addVenueWithAdapter(t, engine, 2, deep)

	amountIn := sdkmath.NewInt(10_000)
	require.NoError(t, bank.Credit(tokenA, trader, amountIn))
	require.NoError(t, bank.Approve(tokenA, trader, amountIn))

	// The deeper pool has less price impact, so venue 2 wins.
	quote, err := engine.GetBestRate(tokenA, tokenB, amountIn)
	require.NoError(t, err)
	require.Equal(t, types.VenueID(2), quote.VenueID)

	out, err := engine.ExecuteSwap(trader, tokenA, tokenB, amountIn, quote.ExpectedOut, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, quote.ExpectedOut, out)

	require.True(t, bank.BalanceOf(tokenA, trader).IsZero())
	require.Equal(t, out, bank.BalanceOf(tokenB, trader))
	// The engine account is a pass-through and keeps nothing.
	require.True(t, bank.BalanceOf(tokenA, engineAccount).IsZero())
	require.True(t, bank.BalanceOf(tokenB, engineAccount).IsZero())
}

func addVenueWithAdapter(t *testing.T, engine *router.Engine, id types.VenueID, adapter router.ProtocolAdapter) {
	t.Helper()
	cfg := types.VenueConfig{
		ID:             id,
		Address:        common.HexToAddress("0x0000000000000000000000000000000000000101"),
		IsActive:       true,
		MaxSlippageBps: 300,
		GasLimit:       200_000,
	}
	require.NoError(t, engine.ConfigureVenue(routerAdmin, cfg, adapter))
}

func TestExecuteSwapEnforcesDeadline(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100), swapOut: sdkmath.NewInt(100)})

	require.NoError(t, bank.Credit(tokenA, trader, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(tokenA, trader, sdkmath.NewInt(100)))

	_, err := engine.ExecuteSwap(trader, tokenA, tokenB, sdkmath.NewInt(100), sdkmath.NewInt(1), now.Add(-time.Second))
	require.ErrorIs(t, err, types.ErrExpired)
	require.Equal(t, sdkmath.NewInt(100), bank.BalanceOf(tokenA, trader))
}

func TestExecuteSwapBlockedWhilePaused(t *testing.T) {
	now := time.Now()
	engine, bank, pause := newTestEngine(t, &now)
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100), swapOut: sdkmath.NewInt(100)})

	require.NoError(t, bank.Credit(tokenA, trader, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(tokenA, trader, sdkmath.NewInt(100)))

	pause.Pause()
	_, err := engine.ExecuteSwap(trader, tokenA, tokenB, sdkmath.NewInt(100), sdkmath.NewInt(1), now.Add(time.Minute))
	require.ErrorIs(t, err, types.ErrPaused)
}

func TestExecuteSwapRollsBackOnInsufficientOutput(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)

	// The venue quotes 100 but delivers 90, below the caller's minimum.
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100), swapOut: sdkmath.NewInt(90)})

	require.NoError(t, bank.Credit(tokenA, trader, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(tokenA, trader, sdkmath.NewInt(100)))

	_, err := engine.ExecuteSwap(trader, tokenA, tokenB, sdkmath.NewInt(100), sdkmath.NewInt(100), now.Add(time.Minute))
	require.ErrorIs(t, err, types.ErrInsufficientOutput)

	// The journal restores the pulled input and its allowance.
	require.Equal(t, sdkmath.NewInt(100), bank.BalanceOf(tokenA, trader))
	require.Equal(t, sdkmath.NewInt(100), bank.Allowance(tokenA, trader))
	require.True(t, bank.BalanceOf(tokenA, engineAccount).IsZero())
}

func TestExecuteSwapRollsBackOnVenueFailure(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100), swapErr: types.ErrInvalidAmount})

	require.NoError(t, bank.Credit(tokenA, trader, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(tokenA, trader, sdkmath.NewInt(100)))

	_, err := engine.ExecuteSwap(trader, tokenA, tokenB, sdkmath.NewInt(100), sdkmath.NewInt(1), now.Add(time.Minute))
	require.ErrorIs(t, err, types.ErrNoViableVenue)
	require.Equal(t, sdkmath.NewInt(100), bank.BalanceOf(tokenA, trader))
	require.True(t, bank.BalanceOf(tokenA, engineAccount).IsZero())
}

func TestFailedSwapRestoresVenueReserves(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)

	venue := venuesim.NewVenue(bank, common.HexToAddress("0x0000000000000000000000000000000000000101"), 30, 100_000)
	require.NoError(t, venue.SetReserves(tokenA, tokenB, sdkmath.NewInt(1_000_000), sdkmath.NewInt(1_000_000)))
	addVenueWithAdapter(t, engine, 1, venue)

	amountIn := sdkmath.NewInt(10_000)
	require.NoError(t, bank.Credit(tokenA, trader, amountIn))
	require.NoError(t, bank.Approve(tokenA, trader, amountIn))

	before, err := engine.GetBestRate(tokenA, tokenB, amountIn)
	require.NoError(t, err)

	// Demand one unit more than the venue can deliver: the swap executes at
	// the venue, then fails the minimum-output check and rolls back.
	_, err = engine.ExecuteSwap(trader, tokenA, tokenB, amountIn, before.ExpectedOut.AddRaw(1), now.Add(time.Minute))
	require.ErrorIs(t, err, types.ErrInsufficientOutput)
	require.Equal(t, amountIn, bank.BalanceOf(tokenA, trader))

	// The venue's reserves must not remember the phantom trade.
	after, err := engine.GetBestRate(tokenA, tokenB, amountIn)
	require.NoError(t, err)
	require.Equal(t, before.ExpectedOut, after.ExpectedOut)
}

func TestExecuteSwapRequiresAllowance(t *testing.T) {
	now := time.Now()
	engine, bank, _ := newTestEngine(t, &now)
	addVenue(t, engine, 1, true, &stubAdapter{out: sdkmath.NewInt(100), swapOut: sdkmath.NewInt(100)})

	require.NoError(t, bank.Credit(tokenA, trader, sdkmath.NewInt(100)))

	_, err := engine.ExecuteSwap(trader, tokenA, tokenB, sdkmath.NewInt(100), sdkmath.NewInt(1), now.Add(time.Minute))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)
}
