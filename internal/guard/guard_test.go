package guard_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/atrium-fi/ace/internal/guard"
	"github.com/atrium-fi/ace/internal/types"
)

func TestStaticAdmin(t *testing.T) {
	admin := common.HexToAddress("0x0000000000000000000000000000000000000AD1")
	other := common.HexToAddress("0x0000000000000000000000000000000000000AD2")

	cap := guard.NewStaticAdmin(admin)
	require.True(t, cap.IsAdministrator(admin))
	require.False(t, cap.IsAdministrator(other))
	require.False(t, cap.IsAdministrator(common.Address{}))
}

func TestPauseGate(t *testing.T) {
	gate := guard.NewPauseGate()
	require.False(t, gate.IsPaused())
	gate.Pause()
	require.True(t, gate.IsPaused())
	gate.Unpause()
	require.False(t, gate.IsPaused())
}

func TestReentrancyGuard(t *testing.T) {
	g := guard.NewReentrancyGuard()

	require.NoError(t, g.Enter())
	require.ErrorIs(t, g.Enter(), types.ErrReentrancy)

	g.Exit()
	require.NoError(t, g.Enter())
	g.Exit()
}
