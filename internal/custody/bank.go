/*

In-process token custody. The Bank is the custody primitive both engines
consume: atomic pull/push of fungible value with loud failures on missing
balance or approval, plus a journal so a multi-step operation can be rolled
back as a unit when a later step fails.

The host environment serializes state-changing calls, so a single mutex and a
single open journal at a time are sufficient.

*/

package custody

import (
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
)

var bankLogger = logger.GetForComponent("custody_bank")

// NativeToken is the sentinel identifier for the chain's native coin.
// Native transfers carry their value with the call and need no approval.
var NativeToken = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

type balanceKey struct {
	token  common.Address
	holder common.Address
}

// Bank is a multi-token balance and allowance ledger.
type Bank struct {
	mu         sync.Mutex
	balances   map[balanceKey]sdkmath.Int
	allowances map[balanceKey]sdkmath.Int

	journalOpen  bool
	prevBalances map[balanceKey]sdkmath.Int
	prevAllows   map[balanceKey]sdkmath.Int
	undoHooks    []func()
}

// NewBank creates an empty ledger.
func NewBank() *Bank {
	return &Bank{
		balances:   make(map[balanceKey]sdkmath.Int),
		allowances: make(map[balanceKey]sdkmath.Int),
	}
}

// Credit mints amount of token to holder. Used for funding accounts at
// genesis and in tests; the engines themselves never create value.
func (b *Bank) Credit(token, holder common.Address, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := balanceKey{token, holder}
	b.setBalance(key, b.balance(key).Add(amount))
	return nil
}

// BalanceOf returns holder's balance of token.
func (b *Bank) BalanceOf(token, holder common.Address) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(balanceKey{token, holder})
}

// Approve grants the custodian permission to pull up to amount of token from
// owner. Replaces any prior approval.
func (b *Bank) Approve(token, owner common.Address, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setAllowance(balanceKey{token, owner}, amount)
	return nil
}

// Allowance returns the remaining approval of owner for token.
func (b *Bank) Allowance(token, owner common.Address) sdkmath.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowance(balanceKey{token, owner})
}

// PullFrom moves amount of token from owner into custodian's account,
// consuming approval. The native token is approval-exempt: its value is
// considered attached to the call itself.
func (b *Bank) PullFrom(token, owner, custodian common.Address, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if token != NativeToken {
		allowKey := balanceKey{token, owner}
		allowed := b.allowance(allowKey)
		if allowed.LT(amount) {
			return types.ErrInsufficientAllowance.Wrapf("approved %s, need %s", allowed, amount)
		}
		b.setAllowance(allowKey, allowed.Sub(amount))
	}
	return b.transfer(token, owner, custodian, amount)
}

// PushTo moves amount of token out of custodian's account to recipient.
func (b *Bank) PushTo(token, custodian, recipient common.Address, amount sdkmath.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transfer(token, custodian, recipient, amount)
}

// Begin opens a journal. Until Commit or Rollback every balance and
// allowance mutation records its prior value.
func (b *Bank) Begin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journalOpen {
		// Nested journals would mean two mutating operations interleaved,
		// which the execution model rules out.
		bankLogger.Error().Msg("Journal already open; discarding stale journal")
	}
	b.journalOpen = true
	b.prevBalances = make(map[balanceKey]sdkmath.Int)
	b.prevAllows = make(map[balanceKey]sdkmath.Int)
	b.undoHooks = nil
}

// OnRollback registers a hook to run if the open journal is rolled back.
// Collaborators that keep state outside the ledger (venue reserves) use it so
// a rollback restores their view too. No-op when no journal is open.
func (b *Bank) OnRollback(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.journalOpen {
		b.undoHooks = append(b.undoHooks, fn)
	}
}

// Commit closes the journal keeping all mutations.
func (b *Bank) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.journalOpen = false
	b.prevBalances = nil
	b.prevAllows = nil
	b.undoHooks = nil
}

// Rollback restores every balance and allowance touched since Begin, then
// runs the registered undo hooks newest-first.
func (b *Bank) Rollback() {
	b.mu.Lock()
	if !b.journalOpen {
		b.mu.Unlock()
		return
	}
	for key, prev := range b.prevBalances {
		if prev.IsZero() {
			delete(b.balances, key)
		} else {
			b.balances[key] = prev
		}
	}
	for key, prev := range b.prevAllows {
		if prev.IsZero() {
			delete(b.allowances, key)
		} else {
			b.allowances[key] = prev
		}
	}
	hooks := b.undoHooks
	b.journalOpen = false
	b.prevBalances = nil
	b.prevAllows = nil
	b.undoHooks = nil
	// Hooks run outside the ledger lock; they may lock their own state.
	b.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
}

// transfer moves value between two holders. Caller holds the mutex.
func (b *Bank) transfer(token, from, to common.Address, amount sdkmath.Int) error {
	fromKey := balanceKey{token, from}
	have := b.balance(fromKey)
	if have.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("have %s, need %s", have, amount)
	}
	toKey := balanceKey{token, to}
	b.setBalance(fromKey, have.Sub(amount))
	b.setBalance(toKey, b.balance(toKey).Add(amount))
	return nil
}

func (b *Bank) balance(key balanceKey) sdkmath.Int {
	if v, ok := b.balances[key]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

func (b *Bank) allowance(key balanceKey) sdkmath.Int {
	if v, ok := b.allowances[key]; ok {
		return v
	}
	return sdkmath.ZeroInt()
}

func (b *Bank) setBalance(key balanceKey, value sdkmath.Int) {
	if b.journalOpen {
		if _, touched := b.prevBalances[key]; !touched {
			b.prevBalances[key] = b.balance(key)
		}
	}
	b.balances[key] = value
}

func (b *Bank) setAllowance(key balanceKey, value sdkmath.Int) {
	if b.journalOpen {
		if _, touched := b.prevAllows[key]; !touched {
			b.prevAllows[key] = b.allowance(key)
		}
	}
	b.allowances[key] = value
}

func validAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return types.ErrInvalidAmount.Wrap("amount is nil")
	}
	if amount.IsNegative() {
		return types.ErrInvalidAmount.Wrapf("amount %s is negative", amount)
	}
	return nil
}
