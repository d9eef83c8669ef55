/*

Types for the phased auction engine: sale configuration, derived phases and
the royalty record.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// SalePhase is the effective phase of a sale, derived from the wall clock and
// the minted supply at call time. It is never stored.
type SalePhase string

const (
	PhaseUnconfigured SalePhase = "unconfigured"
	PhaseAllowlist    SalePhase = "allowlist"
	PhasePublic       SalePhase = "public"
	PhaseSoldOut      SalePhase = "sold_out"
)

// MaxRoyaltyBps caps the configurable royalty fee at 10%.
const MaxRoyaltyBps uint32 = 1000

// SaleConfig holds the immutable parameters of one launch. Prices are in the
// smallest unit of the payment asset.
type SaleConfig struct {
	MaxSupply         uint64        `json:"max_supply"`
	StartPrice        sdkmath.Int   `json:"start_price"`
	EndPrice          sdkmath.Int   `json:"end_price"`
	AuctionDuration   time.Duration `json:"auction_duration"`
	AllowlistDuration time.Duration `json:"allowlist_duration"`
	PublicSaleStart   time.Time     `json:"public_sale_start"`
	MaxPerWallet      uint64        `json:"max_per_wallet"`
	BaseURI           string        `json:"base_uri"`
	HiddenURI         string        `json:"hidden_uri"`
}

// RoyaltyRecord is the configured secondary-sale royalty.
type RoyaltyRecord struct {
	Recipient common.Address `json:"recipient"`
	FeeBps    uint32         `json:"fee_bps"`
}

// SaleStatus is a read-only snapshot of the launchpad for observers.
type SaleStatus struct {
	Phase           SalePhase   `json:"phase"`
	TotalMinted     uint64      `json:"total_minted"`
	MaxSupply       uint64      `json:"max_supply"`
	CurrentPrice    sdkmath.Int `json:"current_price"`
	AllowlistStart  time.Time   `json:"allowlist_start"`
	PublicSaleStart time.Time   `json:"public_sale_start"`
	IsRevealed      bool        `json:"is_revealed"`
	RevealTime      time.Time   `json:"reveal_time"`
}
