package utils_test

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/atrium-fi/ace/internal/utils"
)

func TestApplyBps(t *testing.T) {
	amount, err := utils.ApplyBps(sdkmath.NewInt(10_000), 500)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), amount)

	// Truncation toward zero.
	amount, err = utils.ApplyBps(sdkmath.NewInt(3), 5_000)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1), amount)

	amount, err = utils.ApplyBps(sdkmath.NewInt(12_345), 10_000)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(12_345), amount)

	amount, err = utils.ApplyBps(sdkmath.NewInt(12_345), 0)
	require.NoError(t, err)
	require.True(t, amount.IsZero())

	_, err = utils.ApplyBps(sdkmath.NewInt(1), 10_001)
	require.ErrorIs(t, err, utils.ErrInvalidBps)
	_, err = utils.ApplyBps(sdkmath.Int{}, 100)
	require.ErrorIs(t, err, utils.ErrAmountNil)
	_, err = utils.ApplyBps(sdkmath.NewInt(-1), 100)
	require.ErrorIs(t, err, utils.ErrAmountNegative)
}

func TestSDKIntToFloat64(t *testing.T) {
	value, err := utils.SDKIntToFloat64(sdkmath.NewIntWithDecimal(55, 16), 18)
	require.NoError(t, err)
	require.InDelta(t, 0.55, value, 1e-12)

	_, err = utils.SDKIntToFloat64(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, utils.ErrInvalidPrecision)
	_, err = utils.SDKIntToFloat64(sdkmath.Int{}, 18)
	require.ErrorIs(t, err, utils.ErrAmountNil)
	_, err = utils.SDKIntToFloat64(sdkmath.NewInt(-1), 18)
	require.ErrorIs(t, err, utils.ErrAmountNegative)
}
