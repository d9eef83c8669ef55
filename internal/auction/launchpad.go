/*

The phased sale engine: allowlist-gated fixed-price period followed by a
descending-price public auction, with per-wallet quotas, overpayment refunds,
revenue withdrawal, one-way metadata reveal and royalty configuration.

All state mutations complete before any outbound transfer, and every mint is
one atomic unit: a failed refund rolls back the mint it belonged to.

*/

package auction

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
	"github.com/atrium-fi/ace/internal/utils"
)

var launchpadLogger = logger.GetForComponent("launchpad")

// Recorder receives the records the launchpad emits for off-chain observers.
type Recorder interface {
	RecordMint(record types.MintRecord)
	RecordReveal(record types.RevealRecord)
	RecordWithdrawal(record types.WithdrawalRecord)
}

// Launchpad manages a single sale's lifecycle.
type Launchpad struct {
	admin   guard.AdminCapability
	pause   *guard.PauseGate
	lock    *guard.ReentrancyGuard
	bank    *custody.Bank
	account common.Address // sale proceeds accumulate here
	nowFn   func() time.Time

	config       *types.SaleConfig
	allowlist    map[common.Address]bool
	walletMinted map[common.Address]uint64
	owners       map[uint64]common.Address
	totalMinted  uint64
	nextTokenID  uint64

	revealed   bool
	revealTime time.Time
	royalty    types.RoyaltyRecord
	withdrawTo common.Address
	recorder   Recorder
}

// Config holds the collaborators a Launchpad is constructed with.
type Config struct {
	Admin      guard.AdminCapability
	Pause      *guard.PauseGate
	Bank       *custody.Bank
	Account    common.Address // custody account holding sale proceeds
	WithdrawTo common.Address // recipient of revenue withdrawals
	Recorder   Recorder       // optional
	NowFn      func() time.Time
}

// NewLaunchpad creates an unconfigured launchpad.
func NewLaunchpad(cfg Config) (*Launchpad, error) {
	if cfg.Admin == nil {
		return nil, types.ErrInvalidSaleConfig.Wrap("admin capability cannot be nil")
	}
	if cfg.Pause == nil {
		return nil, types.ErrInvalidSaleConfig.Wrap("pause gate cannot be nil")
	}
	if cfg.Bank == nil {
		return nil, types.ErrInvalidSaleConfig.Wrap("custody bank cannot be nil")
	}
	if cfg.Account == (common.Address{}) {
		return nil, types.ErrInvalidSaleConfig.Wrap("proceeds account cannot be the zero address")
	}
	if cfg.WithdrawTo == (common.Address{}) {
		return nil, types.ErrInvalidSaleConfig.Wrap("withdrawal recipient cannot be the zero address")
	}
	nowFn := cfg.NowFn
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Launchpad{
		admin:        cfg.Admin,
		pause:        cfg.Pause,
		lock:         guard.NewReentrancyGuard(),
		bank:         cfg.Bank,
		account:      cfg.Account,
		nowFn:        nowFn,
		allowlist:    make(map[common.Address]bool),
		walletMinted: make(map[common.Address]uint64),
		owners:       make(map[uint64]common.Address),
		withdrawTo:   cfg.WithdrawTo,
		recorder:     cfg.Recorder,
	}, nil
}

// ConfigureLaunch sets the sale parameters. Reconfiguration is permitted only
// while nothing has been minted.
func (l *Launchpad) ConfigureLaunch(caller common.Address, config types.SaleConfig) error {
	if !l.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if l.totalMinted > 0 {
		return types.ErrSaleAlreadyStarted
	}
	if config.MaxSupply == 0 {
		return types.ErrInvalidMaxSupply
	}
	if config.StartPrice.IsNil() || config.StartPrice.IsNegative() ||
		config.EndPrice.IsNil() || config.EndPrice.IsNegative() {
		return types.ErrInvalidSaleConfig.Wrap("prices must be non-negative")
	}
	if config.StartPrice.LT(config.EndPrice) {
		return types.ErrInvalidPriceRange.Wrapf("start %s, end %s", config.StartPrice, config.EndPrice)
	}
	if config.AuctionDuration < time.Second {
		return types.ErrInvalidSaleConfig.Wrap("auction duration must be at least one second")
	}
	if config.AllowlistDuration < 0 {
		return types.ErrInvalidSaleConfig.Wrap("allowlist duration cannot be negative")
	}
	if config.PublicSaleStart.IsZero() {
		return types.ErrInvalidSaleConfig.Wrap("public sale start must be set")
	}
	if config.MaxPerWallet == 0 {
		return types.ErrInvalidSaleConfig.Wrap("per-wallet cap must be positive")
	}

	l.config = &config
	launchpadLogger.Info().
		Uint64("maxSupply", config.MaxSupply).
		Str("startPrice", config.StartPrice.String()).
		Str("endPrice", config.EndPrice.String()).
		Time("publicSaleStart", config.PublicSaleStart).
		Dur("auctionDuration", config.AuctionDuration).
		Uint64("maxPerWallet", config.MaxPerWallet).
		Msg("Launch configured")
	return nil
}

// UpdateAllowlist adds or removes a batch of addresses.
func (l *Launchpad) UpdateAllowlist(caller common.Address, wallets []common.Address, allowed bool) error {
	if !l.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	for _, w := range wallets {
		if allowed {
			l.allowlist[w] = true
		} else {
			delete(l.allowlist, w)
		}
	}
	launchpadLogger.Info().
		Int("count", len(wallets)).
		Bool("allowed", allowed).
		Msg("Allowlist updated")
	return nil
}

// IsAllowlisted reports allowlist membership.
func (l *Launchpad) IsAllowlisted(wallet common.Address) bool {
	return l.allowlist[wallet]
}

// Phase returns the effective phase at the current instant.
func (l *Launchpad) Phase() types.SalePhase {
	return PhaseAt(l.nowFn(), l.config, l.totalMinted)
}

// AdvancePhase is the explicit administrative confirmation of a clock-driven
// boundary. The derived phase stays authoritative; this only asserts the
// boundary has been crossed, for deterministic sequencing around tests and
// operations tooling.
func (l *Launchpad) AdvancePhase(caller common.Address) (types.SalePhase, error) {
	if !l.admin.IsAdministrator(caller) {
		return types.PhaseUnconfigured, types.ErrUnauthorized
	}
	if l.config == nil {
		return types.PhaseUnconfigured, types.ErrSaleNotConfigured
	}
	phase := PhaseAt(l.nowFn(), l.config, l.totalMinted)
	launchpadLogger.Info().
		Str("phase", string(phase)).
		Uint64("totalMinted", l.totalMinted).
		Msg("Phase boundary confirmed")
	return phase, nil
}

// CurrentPrice returns the clearing price at the current instant.
func (l *Launchpad) CurrentPrice() (sdkmath.Int, error) {
	return PriceAt(l.nowFn(), l.config)
}

// AllowlistMint mints quantity units at the fixed start price. Permitted any
// time before the public sale starts, for allowlisted wallets only.
func (l *Launchpad) AllowlistMint(caller common.Address, quantity uint64, payment sdkmath.Int) ([]uint64, error) {
	if err := l.lock.Enter(); err != nil {
		return nil, err
	}
	defer l.lock.Exit()

	now := l.nowFn()
	phase := PhaseAt(now, l.config, l.totalMinted)
	if phase == types.PhaseSoldOut {
		return nil, types.ErrSoldOut.Wrapf("minted %d of %d", l.totalMinted, l.config.MaxSupply)
	}
	if phase != types.PhaseAllowlist {
		return nil, types.ErrWrongPhase.Wrapf("allowlist mint in phase %s", phase)
	}
	if !l.allowlist[caller] {
		return nil, types.ErrNotAllowlisted.Wrap(caller.Hex())
	}
	return l.mint(caller, quantity, payment, l.config.StartPrice, types.PhaseAllowlist, now)
}

// PublicMint mints quantity units at the current Dutch-auction price.
func (l *Launchpad) PublicMint(caller common.Address, quantity uint64, payment sdkmath.Int) ([]uint64, error) {
	if err := l.lock.Enter(); err != nil {
		return nil, err
	}
	defer l.lock.Exit()

	now := l.nowFn()
	phase := PhaseAt(now, l.config, l.totalMinted)
	if phase == types.PhaseSoldOut {
		return nil, types.ErrSoldOut.Wrapf("minted %d of %d", l.totalMinted, l.config.MaxSupply)
	}
	if phase != types.PhasePublic {
		return nil, types.ErrWrongPhase.Wrapf("public mint in phase %s", phase)
	}
	price, err := PriceAt(now, l.config)
	if err != nil {
		return nil, err
	}
	return l.mint(caller, quantity, payment, price, types.PhasePublic, now)
}

// mint performs the shared quota, supply, payment and refund path. Caller
// holds the re-entrancy guard and has resolved the unit price for its phase.
func (l *Launchpad) mint(caller common.Address, quantity uint64, payment, unitPrice sdkmath.Int, phase types.SalePhase, now time.Time) ([]uint64, error) {
	if l.pause.IsPaused() {
		return nil, types.ErrPaused
	}
	if quantity == 0 {
		return nil, types.ErrInvalidAmount.Wrap("quantity must be positive")
	}
	if payment.IsNil() || payment.IsNegative() {
		return nil, types.ErrInvalidAmount.Wrap("payment must be non-negative")
	}
	// Compared against the remaining headroom rather than summed, so a huge
	// quantity cannot wrap the counters.
	if quantity > l.config.MaxPerWallet-l.walletMinted[caller] {
		return nil, types.ErrExceedsMaxPerWallet.Wrapf("minted %d, requested %d, cap %d",
			l.walletMinted[caller], quantity, l.config.MaxPerWallet)
	}
	if quantity > l.config.MaxSupply-l.totalMinted {
		return nil, types.ErrSoldOut.Wrapf("minted %d of %d, requested %d",
			l.totalMinted, l.config.MaxSupply, quantity)
	}

	cost := unitPrice.Mul(sdkmath.NewIntFromUint64(quantity))
	if payment.LT(cost) {
		return nil, types.ErrInsufficientPayment.Wrapf("paid %s, need %s", payment, cost)
	}

	l.bank.Begin()
	committed := false
	defer func() {
		if !committed {
			l.bank.Rollback()
		}
	}()

	if err := l.bank.PullFrom(custody.NativeToken, caller, l.account, payment); err != nil {
		return nil, err
	}

	// Effects before interactions: counters and ownership move before the
	// refund transfer goes out.
	tokenIDs := make([]uint64, quantity)
	for i := uint64(0); i < quantity; i++ {
		tokenIDs[i] = l.nextTokenID
		l.owners[l.nextTokenID] = caller
		l.nextTokenID++
	}
	l.walletMinted[caller] += quantity
	l.totalMinted += quantity

	refund := payment.Sub(cost)
	if refund.IsPositive() {
		if err := l.bank.PushTo(custody.NativeToken, l.account, caller, refund); err != nil {
			// A refund that cannot be delivered fails the whole mint; partial
			// state (minted but over-charged) is disallowed.
			l.rollbackMint(caller, tokenIDs)
			return nil, err
		}
	}

	l.bank.Commit()
	committed = true

	record := types.MintRecord{
		ID:        uuid.New().String(),
		Wallet:    caller,
		TokenIDs:  tokenIDs,
		PricePaid: cost,
		Phase:     phase,
		Timestamp: now,
	}
	if l.recorder != nil {
		l.recorder.RecordMint(record)
	}

	launchpadLogger.Info().
		Str("recordID", record.ID).
		Str("wallet", caller.Hex()).
		Uints64("tokenIDs", tokenIDs).
		Str("pricePaid", cost.String()).
		Str("refund", refund.String()).
		Str("phase", string(phase)).
		Msg("Mint completed")
	return tokenIDs, nil
}

// rollbackMint undoes counter and ownership mutations when a later step of
// the same mint fails. Bank state is restored by the journal.
func (l *Launchpad) rollbackMint(caller common.Address, tokenIDs []uint64) {
	for _, id := range tokenIDs {
		delete(l.owners, id)
	}
	l.walletMinted[caller] -= uint64(len(tokenIDs))
	l.totalMinted -= uint64(len(tokenIDs))
	l.nextTokenID -= uint64(len(tokenIDs))
}

// OwnerOf returns the holder of a minted token id.
func (l *Launchpad) OwnerOf(tokenID uint64) (common.Address, error) {
	owner, ok := l.owners[tokenID]
	if !ok {
		return common.Address{}, types.ErrUnknownTokenID.Wrapf("id %d", tokenID)
	}
	return owner, nil
}

// WalletMinted returns the cumulative units minted by a wallet.
func (l *Launchpad) WalletMinted(wallet common.Address) uint64 {
	return l.walletMinted[wallet]
}

// TotalMinted returns the cumulative units minted across all wallets.
func (l *Launchpad) TotalMinted() uint64 {
	return l.totalMinted
}

// SetRevealTime sets the earliest instant at which Reveal may succeed.
func (l *Launchpad) SetRevealTime(caller common.Address, at time.Time) error {
	if !l.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	l.revealTime = at
	launchpadLogger.Info().Time("revealTime", at).Msg("Reveal timestamp set")
	return nil
}

// Reveal flips the one-way revealed flag once the reveal timestamp has
// passed and minting has started.
func (l *Launchpad) Reveal(caller common.Address) error {
	if !l.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if l.revealed {
		return types.ErrAlreadyRevealed
	}
	if l.config == nil {
		return types.ErrSaleNotConfigured
	}
	if l.totalMinted == 0 {
		return types.ErrWrongPhase.Wrap("nothing minted yet")
	}
	now := l.nowFn()
	if l.revealTime.IsZero() || now.Before(l.revealTime) {
		return types.ErrRevealTooEarly.Wrapf("reveal at %s, now %s", l.revealTime.UTC(), now.UTC())
	}
	l.revealed = true

	record := types.RevealRecord{Caller: caller, Timestamp: now}
	if l.recorder != nil {
		l.recorder.RecordReveal(record)
	}
	launchpadLogger.Info().Str("caller", caller.Hex()).Msg("Metadata revealed")
	return nil
}

// IsRevealed reports the one-way revealed flag.
func (l *Launchpad) IsRevealed() bool {
	return l.revealed
}

// TokenURI serves the hidden URI until reveal, then the id-derived one.
func (l *Launchpad) TokenURI(tokenID uint64) (string, error) {
	if l.config == nil {
		return "", types.ErrSaleNotConfigured
	}
	if _, ok := l.owners[tokenID]; !ok {
		return "", types.ErrUnknownTokenID.Wrapf("id %d", tokenID)
	}
	if !l.revealed {
		return l.config.HiddenURI, nil
	}
	return fmt.Sprintf("%s/%d", l.config.BaseURI, tokenID), nil
}

// SetRoyalty configures the royalty record, capped at MaxRoyaltyBps.
func (l *Launchpad) SetRoyalty(caller, recipient common.Address, feeBps uint32) error {
	if !l.admin.IsAdministrator(caller) {
		return types.ErrUnauthorized
	}
	if recipient == (common.Address{}) {
		return types.ErrInvalidSaleConfig.Wrap("royalty recipient cannot be the zero address")
	}
	if feeBps > types.MaxRoyaltyBps {
		return types.ErrInvalidRoyalty.Wrapf("%d bps exceeds cap of %d", feeBps, types.MaxRoyaltyBps)
	}
	l.royalty = types.RoyaltyRecord{Recipient: recipient, FeeBps: feeBps}
	launchpadLogger.Info().
		Str("recipient", recipient.Hex()).
		Uint32("feeBps", feeBps).
		Msg("Royalty configured")
	return nil
}

// RoyaltyInfo returns the royalty recipient and amount due for a sale price.
func (l *Launchpad) RoyaltyInfo(salePrice sdkmath.Int) (common.Address, sdkmath.Int, error) {
	amount, err := utils.ApplyBps(salePrice, l.royalty.FeeBps)
	if err != nil {
		return common.Address{}, sdkmath.ZeroInt(), types.ErrInvalidAmount.Wrap(err.Error())
	}
	return l.royalty.Recipient, amount, nil
}

// Withdraw sweeps the entire accumulated sale revenue to the configured
// recipient. No per-sale accounting is kept beyond the raw balance.
func (l *Launchpad) Withdraw(caller common.Address) (sdkmath.Int, error) {
	if err := l.lock.Enter(); err != nil {
		return sdkmath.ZeroInt(), err
	}
	defer l.lock.Exit()

	if !l.admin.IsAdministrator(caller) {
		return sdkmath.ZeroInt(), types.ErrUnauthorized
	}
	if l.pause.IsPaused() {
		return sdkmath.ZeroInt(), types.ErrPaused
	}

	balance := l.bank.BalanceOf(custody.NativeToken, l.account)
	if !balance.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}
	if err := l.bank.PushTo(custody.NativeToken, l.account, l.withdrawTo, balance); err != nil {
		return sdkmath.ZeroInt(), err
	}

	now := l.nowFn()
	record := types.WithdrawalRecord{Recipient: l.withdrawTo, Amount: balance, Timestamp: now}
	if l.recorder != nil {
		l.recorder.RecordWithdrawal(record)
	}
	launchpadLogger.Info().
		Str("recipient", l.withdrawTo.Hex()).
		Str("amount", balance.String()).
		Msg("Revenue withdrawn")
	return balance, nil
}

// Status returns a read-only snapshot for observers.
func (l *Launchpad) Status() types.SaleStatus {
	now := l.nowFn()
	status := types.SaleStatus{
		Phase:       PhaseAt(now, l.config, l.totalMinted),
		TotalMinted: l.totalMinted,
		IsRevealed:  l.revealed,
		RevealTime:  l.revealTime,
	}
	if l.config != nil {
		status.MaxSupply = l.config.MaxSupply
		status.PublicSaleStart = l.config.PublicSaleStart
		// The announced opening of the allowlist window. Minting is gated on
		// the phase alone; this is the schedule observers display.
		status.AllowlistStart = l.config.PublicSaleStart.Add(-l.config.AllowlistDuration)
		if price, err := PriceAt(now, l.config); err == nil {
			status.CurrentPrice = price
		}
	}
	return status
}
