package router

import (
	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/atrium-fi/ace/internal/types"
)

// ProtocolAdapter is the capability every configured venue implements.
// The engine treats adapters as untrusted collaborators: quotes carry no
// guarantee and swap results are re-validated against the caller's minimum.
type ProtocolAdapter interface {
	// Quote returns the expected output and a gas cost estimate for swapping
	// amountIn of tokenIn into tokenOut. Pure read, reserves nothing.
	Quote(tokenIn, tokenOut common.Address, amountIn sdkmath.Int) (out sdkmath.Int, gasCost uint64, err error)

	// Swap executes the trade with the full input amount, crediting the
	// output to recipient, and returns the realized output.
	Swap(tokenIn, tokenOut common.Address, amountIn sdkmath.Int, recipient common.Address) (sdkmath.Int, error)
}

// Recorder receives the execution record emitted after a committed swap.
type Recorder interface {
	RecordSwap(record types.SwapRecord)
}
