/*

Persistence for emitted records. The Recorder type is the sink the engines
are wired with; persistence failures are logged and never propagate back into
the operation that emitted the record — the operation has already committed.

*/

package state

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"

	"github.com/atrium-fi/ace/internal/logger"
	"github.com/atrium-fi/ace/internal/types"
)

var recordsLogger = logger.GetForComponent("records_store")

// Recorder persists emitted records. Implements the engines' recorder
// interfaces.
type Recorder struct{}

// NewRecorder returns a Recorder writing through the global DB pool.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordSwap persists a swap execution record.
func (r *Recorder) RecordSwap(record types.SwapRecord) {
	if err := SaveSwapRecord(record); err != nil {
		recordsLogger.Error().Err(err).Str("recordID", record.ID).Msg("Failed to persist swap record")
	}
}

// RecordMint persists a mint record.
func (r *Recorder) RecordMint(record types.MintRecord) {
	if err := SaveMintRecord(record); err != nil {
		recordsLogger.Error().Err(err).Str("recordID", record.ID).Msg("Failed to persist mint record")
	}
}

// RecordReveal persists the reveal record.
func (r *Recorder) RecordReveal(record types.RevealRecord) {
	if DB == nil {
		return
	}
	_, err := DB.Exec(
		`INSERT INTO reveal_records (caller, revealed_at) VALUES ($1, $2)`,
		record.Caller.Hex(), record.Timestamp,
	)
	if err != nil {
		recordsLogger.Error().Err(err).Msg("Failed to persist reveal record")
	}
}

// RecordWithdrawal persists a revenue withdrawal record.
func (r *Recorder) RecordWithdrawal(record types.WithdrawalRecord) {
	if DB == nil {
		return
	}
	_, err := DB.Exec(
		`INSERT INTO withdrawal_records (recipient, amount, withdrawn_at) VALUES ($1, $2, $3)`,
		record.Recipient.Hex(), record.Amount.String(), record.Timestamp,
	)
	if err != nil {
		recordsLogger.Error().Err(err).Msg("Failed to persist withdrawal record")
	}
}

// SaveSwapRecord inserts one swap record.
func SaveSwapRecord(record types.SwapRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := DB.Exec(
		`INSERT INTO swap_records (record_id, caller, token_in, token_out, amount_in, amount_out, venue_id, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.Caller.Hex(), record.TokenIn.Hex(), record.TokenOut.Hex(),
		record.AmountIn.String(), record.AmountOut.String(), uint64(record.VenueID), record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap record: %w", err)
	}
	return nil
}

// ListSwapRecords returns the most recent swap records, newest first.
func ListSwapRecords(limit int) ([]types.SwapRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(
		`SELECT record_id, caller, token_in, token_out, amount_in, amount_out, venue_id, executed_at
		 FROM swap_records ORDER BY executed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query swap records: %w", err)
	}
	defer rows.Close()

	var records []types.SwapRecord
	for rows.Next() {
		var (
			rec                        types.SwapRecord
			caller, tokenIn, tokenOut  string
			amountIn, amountOut        string
			venueID                    uint64
		)
		if err := rows.Scan(&rec.ID, &caller, &tokenIn, &tokenOut, &amountIn, &amountOut, &venueID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan swap record: %w", err)
		}
		rec.Caller = common.HexToAddress(caller)
		rec.TokenIn = common.HexToAddress(tokenIn)
		rec.TokenOut = common.HexToAddress(tokenOut)
		rec.VenueID = types.VenueID(venueID)
		inInt, ok := sdkmath.NewIntFromString(amountIn)
		if !ok {
			return nil, fmt.Errorf("invalid amount_in %q in swap record %s", amountIn, rec.ID)
		}
		outInt, ok := sdkmath.NewIntFromString(amountOut)
		if !ok {
			return nil, fmt.Errorf("invalid amount_out %q in swap record %s", amountOut, rec.ID)
		}
		rec.AmountIn = inInt
		rec.AmountOut = outInt
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveMintRecord inserts one mint record.
func SaveMintRecord(record types.MintRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	ids := make([]int64, len(record.TokenIDs))
	for i, id := range record.TokenIDs {
		ids[i] = int64(id)
	}
	_, err := DB.Exec(
		`INSERT INTO mint_records (record_id, wallet, token_ids, price_paid, phase, minted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.Wallet.Hex(), pq.Array(ids), record.PricePaid.String(), string(record.Phase), record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mint record: %w", err)
	}
	return nil
}

// ListMintRecords returns the most recent mint records, newest first.
func ListMintRecords(limit int) ([]types.MintRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := DB.Query(
		`SELECT record_id, wallet, token_ids, price_paid, phase, minted_at
		 FROM mint_records ORDER BY minted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mint records: %w", err)
	}
	defer rows.Close()

	var records []types.MintRecord
	for rows.Next() {
		var (
			rec       types.MintRecord
			wallet    string
			ids       pq.Int64Array
			pricePaid string
			phase     string
		)
		if err := rows.Scan(&rec.ID, &wallet, &ids, &pricePaid, &phase, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan mint record: %w", err)
		}
		rec.Wallet = common.HexToAddress(wallet)
		rec.Phase = types.SalePhase(phase)
		rec.TokenIDs = make([]uint64, len(ids))
		for i, id := range ids {
			rec.TokenIDs[i] = uint64(id)
		}
		paid, ok := sdkmath.NewIntFromString(pricePaid)
		if !ok {
			return nil, fmt.Errorf("invalid price_paid %q in mint record %s", pricePaid, rec.ID)
		}
		rec.PricePaid = paid
		records = append(records, rec)
	}
	return records, rows.Err()
}
