/*

Fund custody and allocation bookkeeping: per-user deposits tracked as shares
over a pooled balance, and an administrator-managed strategy set describing
how the pool should be distributed across external yield sources. Plain
accounting; the time-gated Rebalance produces a target plan from the strategy
weights.

*/

package treasury

import (
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
	"github.com/atrium-fi/ace/internal/utils"
)

var treasuryLogger = logger.GetForComponent("treasury")

// Strategy describes one external yield source and its target weight.
type Strategy struct {
	ID        uint64         `json:"id"`
	Name      string         `json:"name"`
	Target    common.Address `json:"target"`
	TargetBps uint32         `json:"target_bps"`
	IsActive  bool           `json:"is_active"`
}

// Allocation is one leg of a rebalance plan.
type Allocation struct {
	StrategyID uint64      `json:"strategy_id"`
	Amount     sdkmath.Int `json:"amount"`
}

// Vault pools deposits of a single asset and tracks per-user shares.
type Vault struct {
	admin   guard.AdminCapability
	pause   *guard.PauseGate
	lock    *guard.ReentrancyGuard
	bank    *custody.Bank
	asset   common.Address
	account common.Address
	nowFn   func() time.Time

	shares      map[common.Address]sdkmath.Int
	totalShares sdkmath.Int

	strategies        map[uint64]Strategy
	lastRebalance     time.Time
	rebalanceInterval time.Duration
}

// Config holds the collaborators a Vault is constructed with.
type Config struct {
	Admin             guard.AdminCapability
	Pause             *guard.PauseGate
	Bank              *custody.Bank
	Asset             common.Address
	Account           common.Address
	RebalanceInterval time.Duration
	NowFn             func() time.Time
}

// NewVault creates an empty vault for one deposit asset.
func NewVault(cfg Config) (*Vault, error) {
	if cfg.Admin == nil {
		return nil, types.ErrInvalidStrategy.Wrap("admin capability cannot be nil")
	}
	if cfg.Pause == nil {
		return nil, types.ErrInvalidStrategy.Wrap("pause gate cannot be nil")
	}
	if cfg.Bank == nil {
		return nil, types.ErrInvalidStrategy.Wrap("custody bank cannot be nil")
	}
	if cfg.Account == (common.Address{}) {
		return nil, types.ErrInvalidStrategy.Wrap("vault custody account cannot be the zero address")
	}
	nowFn := cfg.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Vault{
		admin:             cfg.Admin,
		pause:             cfg.Pause,
		lock:              guard.NewReentrancyGuard(),
		bank:              cfg.Bank,
		asset:             cfg.Asset,
		account:           cfg.Account,
		nowFn:             nowFn,
		shares:            make(map[common.Address]sdkmath.Int),
		totalShares:       sdkmath.ZeroInt(),
		strategies:        make(map[uint64]Strategy),
		rebalanceInterval: cfg.RebalanceInterval,
	}, nil
}

// Deposit pulls amount of the vault asset from caller and issues shares
// proportional to the pooled balance. The first deposit issues 1:1.
func (v *Vault) Deposit(caller common.Address, amount sdkmath.Int) (sdkmath.Int, error) {
	if err := v.lock.Enter(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer v.lock.Exit()

	if v.pause.IsPaused() {
		return sdkmath.ZeroInt(), types.ErrPaused
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}

	pooled := v.bank.BalanceOf(v.asset, v.account)
	if err := v.bank.PullFrom(v.asset, caller, v.account, amount); err != nil {
		return sdkmath.ZeroInt(), err
	}

	var issued sdkmath.Int
	if v.totalShares.IsZero() || pooled.IsZero() {
		issued = amount
	} else {
		issued = amount.Mul(v.totalShares).Quo(pooled)
	}
	v.shares[caller] = v.shareOf(caller).Add(issued)
	v.totalShares = v.totalShares.Add(issued)

	treasuryLogger.Info().
		Str("depositor", caller.Hex()).
		Str("amount", amount.String()).
		Str("sharesIssued", issued.String()).
		Msg("Deposit accepted")
	return issued, nil
}

// Withdraw burns shares and pushes the proportional slice of the pooled
// balance back to caller.
func (v *Vault) Withdraw(caller common.Address, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := v.lock.Enter(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer v.lock.Exit()

	if v.pause.IsPaused() {
		return sdkmath.ZeroInt(), types.ErrPaused
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), types.ErrInvalidAmount
	}
	held := v.shareOf(caller)
	if held.LT(shares) {
		return sdkmath.ZeroInt(), types.ErrInsufficientShares.Wrapf("held %s, requested %s", held, shares)
	}

	pooled := v.bank.BalanceOf(v.asset, v.account)
	amount := pooled.Mul(shares).Quo(v.totalShares)

	// Burn before the outbound transfer.
	v.shares[caller] = held.Sub(shares)
	v.totalShares = v.totalShares.Sub(shares)

	if err := v.bank.PushTo(v.asset, v.account, caller, amount); err != nil {
		v.shares[caller] = held
		v.totalShares = v.totalShares.Add(shares)
		return sdkmath.ZeroInt(), err
	}

	treasuryLogger.Info().
		Str("withdrawer", caller.Hex()).
		Str("sharesBurned", shares.String()).
		Str("amount", amount.String()).
		Msg("Withdrawal completed")
	return amount, nil
}

// SharesOf returns the caller's share balance.
func (v *Vault) SharesOf(holder common.Address) sdkmath.Int {
	return v.shareOf(holder)
}

func (v *Vault) shareOf(holder common.Address) sdkmath.Int {
	if s, ok := v.shares[holder]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

// TotalShares returns the outstanding share supply.
func (v *Vault) TotalShares() sdkmath.Int {
	return v.totalShares
}

// PooledBalance returns the vault's custody balance of its asset.
func (v *Vault) PooledBalance() sdkmath.Int {
	return v.bank.BalanceOf(v.asset, v.account)
}

// SetStrategy creates or updates a strategy. The active target weights may
// never sum above 100%.
func (v *Vault) SetStrategy(caller common.Address, s Strategy) error {
	if !v.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if s.Target == (common.Address{}) {
		return types.ErrInvalidStrategy.Wrap("strategy target cannot be the zero address")
	}
	if s.TargetBps > types.BpsDenominator {
		return types.ErrInvalidStrategy.Wrapf("target %d bps exceeds 100%%", s.TargetBps)
	}

	totalBps := s.TargetBps
	for id, existing := range v.strategies {
		if id == s.ID || !existing.IsActive {
			continue
		}
		totalBps += existing.TargetBps
	}
	if s.IsActive && totalBps > types.BpsDenominator {
		return types.ErrInvalidStrategy.Wrapf("active targets sum to %d bps", totalBps)
	}

	v.strategies[s.ID] = s
	treasuryLogger.Info().
		Uint64("strategyID", s.ID).
		Str("name", s.Name).
		Uint32("targetBps", s.TargetBps).
		Bool("isActive", s.IsActive).
		Msg("Strategy configured")
	return nil
}

// Strategy returns a configured strategy, if present.
func (v *Vault) Strategy(id uint64) (Strategy, bool) {
	s, ok := v.strategies[id]
	return s, ok
}

// Rebalance computes the target allocation plan across active strategies
// from the current pooled balance. Gated by the rebalance interval.
func (v *Vault) Rebalance(caller common.Address) ([]Allocation, error) {
	if !v.admin.IsAdministrator(caller) {
		return nil, types.ErrUnauthorized
	}
	if v.pause.IsPaused() {
		return nil, types.ErrPaused
	}
	now := v.nowFn()
	if !v.lastRebalance.IsZero() && now.Sub(v.lastRebalance) < v.rebalanceInterval {
		return nil, types.ErrRebalanceTooSoon.Wrapf("last at %s, interval %s", v.lastRebalance.UTC(), v.rebalanceInterval)
	}

	pooled := v.bank.BalanceOf(v.asset, v.account)

	ids := make([]uint64, 0, len(v.strategies))
	for id, s := range v.strategies {
		if s.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	plan := make([]Allocation, 0, len(ids))
	for _, id := range ids {
		s := v.strategies[id]
		amount, err := utils.ApplyBps(pooled, s.TargetBps)
		if err != nil {
			return nil, types.ErrInvalidStrategy.Wrap(err.Error())
		}
		plan = append(plan, Allocation{StrategyID: id, Amount: amount})
	}

	v.lastRebalance = now
	treasuryLogger.Info().
		Int("strategies", len(plan)).
		Str("pooled", pooled.String()).
		Msg("Rebalance plan generated")
	return plan, nil
}
