package custody_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/atrium-fi/ace/internal/custody"
	"github.com/atrium-fi/ace/internal/types"
)

var (
	token     = common.HexToAddress("0x00000000000000000000000000000000000000AA")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000A11")
	custodian = common.HexToAddress("0x0000000000000000000000000000000000000C01")
)

func TestPullRequiresAllowance(t *testing.T) {
	bank := custody.NewBank()
	require.NoError(t, bank.Credit(token, alice, sdkmath.NewInt(100)))

	err := bank.PullFrom(token, alice, custodian, sdkmath.NewInt(50))
	require.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, bank.Approve(token, alice, sdkmath.NewInt(50)))
	require.NoError(t, bank.PullFrom(token, alice, custodian, sdkmath.NewInt(50)))

	require.Equal(t, sdkmath.NewInt(50), bank.BalanceOf(token, alice))
	require.Equal(t, sdkmath.NewInt(50), bank.BalanceOf(token, custodian))
	require.True(t, bank.Allowance(token, alice).IsZero())
}

func TestNativeTokenIsApprovalExempt(t *testing.T) {
	bank := custody.NewBank()
	require.NoError(t, bank.Credit(custody.NativeToken, alice, sdkmath.NewInt(100)))

	require.NoError(t, bank.PullFrom(custody.NativeToken, alice, custodian, sdkmath.NewInt(80)))
	require.Equal(t, sdkmath.NewInt(20), bank.BalanceOf(custody.NativeToken, alice))
	require.Equal(t, sdkmath.NewInt(80), bank.BalanceOf(custody.NativeToken, custodian))
}

func TestPullFailsLoudlyOnInsufficientBalance(t *testing.T) {
	bank := custody.NewBank()
	require.NoError(t, bank.Credit(token, alice, sdkmath.NewInt(10)))
	require.NoError(t, bank.Approve(token, alice, sdkmath.NewInt(100)))

	err := bank.PullFrom(token, alice, custodian, sdkmath.NewInt(11))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestPushFailsOnInsufficientBalance(t *testing.T) {
	bank := custody.NewBank()
	err := bank.PushTo(token, custodian, alice, sdkmath.NewInt(1))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestNegativeAndNilAmountsRejected(t *testing.T) {
	bank := custody.NewBank()
	require.ErrorIs(t, bank.Credit(token, alice, sdkmath.NewInt(-1)), types.ErrInvalidAmount)
	require.ErrorIs(t, bank.Credit(token, alice, sdkmath.Int{}), types.ErrInvalidAmount)
}

func TestJournalRollbackRestoresBalancesAndAllowances(t *testing.T) {
	bank := custody.NewBank()
	require.NoError(t, bank.Credit(token, alice, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(token, alice, sdkmath.NewInt(60)))

	bank.Begin()
	require.NoError(t, bank.PullFrom(token, alice, custodian, sdkmath.NewInt(60)))
	require.NoError(t, bank.PushTo(token, custodian, alice, sdkmath.NewInt(10)))
	bank.Rollback()

	require.Equal(t, sdkmath.NewInt(100), bank.BalanceOf(token, alice))
	require.True(t, bank.BalanceOf(token, custodian).IsZero())
	require.Equal(t, sdkmath.NewInt(60), bank.Allowance(token, alice))
}

func TestJournalRunsUndoHooksOnRollbackOnly(t *testing.T) {
	bank := custody.NewBank()
	calls := 0

	bank.Begin()
	bank.OnRollback(func() { calls++ })
	bank.Commit()
	require.Equal(t, 0, calls)

	bank.Begin()
	bank.OnRollback(func() { calls++ })
	bank.Rollback()
	require.Equal(t, 1, calls)

	// Without an open journal the hook is dropped.
	bank.OnRollback(func() { calls++ })
	bank.Rollback()
	require.Equal(t, 1, calls)
}

func TestJournalCommitKeepsMutations(t *testing.T) {
	bank := custody.NewBank()
	require.NoError(t, bank.Credit(token, alice, sdkmath.NewInt(100)))
	require.NoError(t, bank.Approve(token, alice, sdkmath.NewInt(100)))

	bank.Begin()
	require.NoError(t, bank.PullFrom(token, alice, custodian, sdkmath.NewInt(40)))
	bank.Commit()

	// Rollback after commit must be a no-op.
	bank.Rollback()
	require.Equal(t, sdkmath.NewInt(60), bank.BalanceOf(token, alice))
	require.Equal(t, sdkmath.NewInt(40), bank.BalanceOf(token, custodian))
}
