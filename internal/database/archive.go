// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/calebtracey/blackjack/internal/blackjack"
)

// RecordSettlement persists the final outcome of one round: the tables row is
// upserted to 'active', a rounds row stores the full settlement JSON, and one
// round_results row per hand keeps the per-seat outcome queryable.
func RecordSettlement(ctx context.Context, result *blackjack.SettlementResult) error {
	settlementJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement: %w", err)
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertTable := `
			INSERT INTO tables (id, status)
			VALUES ($1, 'active')
			ON CONFLICT (id) DO UPDATE SET status = 'active', last_seen = NOW()
		`
		if _, e := tx.Exec(ctx, upsertTable, result.TableID); e != nil {
			return e
		}

		insertRound := `
			INSERT INTO rounds (id, table_id, dealer_value, settled_at, settlement)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`
		if _, e := tx.Exec(ctx, insertRound,
			result.RoundID, result.TableID, result.DealerValue.Best,
			result.SettledAt, settlementJSON,
		); e != nil {
			return e
		}

		for _, hr := range result.Hands {
			q := `
				INSERT INTO round_results (round_id, seat_id, hand_id, outcome, bet, payout)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (round_id, hand_id)
				DO UPDATE SET outcome=$4, bet=$5, payout=$6
			`
			if _, e := tx.Exec(ctx, q,
				result.RoundID, hr.SeatID, hr.HandID, string(hr.Outcome), hr.Bet, hr.Payout,
			); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record settlement: %w", err)
	}
	return nil
}

// UpsertTableRecord registers a table row at creation so the archive can
// track tables that never finish a round.
func UpsertTableRecord(ctx context.Context, tableID uuid.UUID, rules blackjack.RulesConfig) error {
	rulesJSON, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	q := `
		INSERT INTO tables (id, status, rules, last_seen)
		VALUES ($1, 'active', $2, NOW())
		ON CONFLICT (id)
		DO UPDATE SET rules = EXCLUDED.rules, last_seen = NOW()
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, tableID, rulesJSON)
		return e
	})
}
