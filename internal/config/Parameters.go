/*

This file contains the default operating parameters for the ACE engines.

*/

package config

import (
	"time"
)

// DefaultParameters provides baseline tunables used when no durable
// configuration is found at startup.
var DefaultParameters = Parameters{
	// Limit rebalances to once per hour. Each rebalance plan moves real
	// capital through external strategies; a tighter cadence amplifies
	// slippage and gas costs faster than it captures drift.
	TreasuryRebalanceInterval: time.Hour,

	// Simulated-venue settings for non-live runs.
	SimVenueFeeBps:  30,
	SimVenueGasCost: 150_000,

	// Query page size for the status API.
	RecordQueryLimit: 50,
}

// Parameters are the runtime tunables of the engines.
type Parameters struct {
	TreasuryRebalanceInterval time.Duration `json:"treasury_rebalance_interval"`
	SimVenueFeeBps            uint32        `json:"sim_venue_fee_bps"`
	SimVenueGasCost           uint64        `json:"sim_venue_gas_cost"`
	RecordQueryLimit          int           `json:"record_query_limit"`
}

// ParametersConfigKey is the durable config map key the parameters are
// stored under.
const ParametersConfigKey = "ace_parameters"
