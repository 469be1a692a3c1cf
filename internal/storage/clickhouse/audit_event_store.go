package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tykhepot-engine/internal/audit"
	"tykhepot-engine/internal/domain"
	"tykhepot-engine/internal/observability"
)

// AuditEventStore writes the audit event log to ClickHouse.
type AuditEventStore struct {
	conn *Conn
}

// NewAuditEventStore creates a new AuditEventStore.
func NewAuditEventStore(conn *Conn) *AuditEventStore {
	return &AuditEventStore{conn: conn}
}

// Compile-time interface check.
var _ audit.EventStore = (*AuditEventStore)(nil)

// InsertBulk appends a batch of events. The log is append-only; duplicates
// are impossible by construction since every event is emitted exactly once
// per committed state change.
func (s *AuditEventStore) InsertBulk(ctx context.Context, events []*domain.AuditEvent) (err error) {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "audit_insert", time.Since(start).Seconds(), err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO audit_events (
			kind, pool_type, round_number, timestamp,
			user, amount,
			total_pool, burn_amount, platform_amount, rollover_amount, escrow_amount,
			participant_count, winners, seed,
			regular_refunded, free_carried_over, total_refunded,
			winner_slot, referrer
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, ev := range events {
		err = batch.Append(
			ev.Kind, uint8(ev.PoolType), ev.RoundNumber, ev.Timestamp,
			ev.User, ev.Amount,
			ev.TotalPool, ev.BurnAmount, ev.PlatformAmount, ev.RolloverAmount, ev.EscrowAmount,
			ev.ParticipantCount, ev.Winners, ev.Seed,
			ev.RegularRefunded, ev.FreeCarriedOver, ev.TotalRefunded,
			int32(ev.WinnerSlot), ev.Referrer,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListByRound retrieves every event of one round in emission order.
func (s *AuditEventStore) ListByRound(ctx context.Context, pool domain.PoolType, round uint64) ([]*domain.AuditEvent, error) {
	query := `
		SELECT kind, pool_type, round_number, timestamp,
		       user, amount,
		       total_pool, burn_amount, platform_amount, rollover_amount, escrow_amount,
		       participant_count, winners, seed,
		       regular_refunded, free_carried_over, total_refunded,
		       winner_slot, referrer
		FROM audit_events
		WHERE pool_type = ? AND round_number = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, uint8(pool), round)
	if err != nil {
		return nil, fmt.Errorf("query by round: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

// ListRecent retrieves the newest limit events for a pool, newest first.
func (s *AuditEventStore) ListRecent(ctx context.Context, pool domain.PoolType, limit int) ([]*domain.AuditEvent, error) {
	query := `
		SELECT kind, pool_type, round_number, timestamp,
		       user, amount,
		       total_pool, burn_amount, platform_amount, rollover_amount, escrow_amount,
		       participant_count, winners, seed,
		       regular_refunded, free_carried_over, total_refunded,
		       winner_slot, referrer
		FROM audit_events
		WHERE pool_type = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint8(pool), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	return scanAuditEvents(rows)
}

func scanAuditEvents(rows driver.Rows) ([]*domain.AuditEvent, error) {
	var events []*domain.AuditEvent

	for rows.Next() {
		var ev domain.AuditEvent
		var poolType uint8
		var winnerSlot int32

		err := rows.Scan(
			&ev.Kind, &poolType, &ev.RoundNumber, &ev.Timestamp,
			&ev.User, &ev.Amount,
			&ev.TotalPool, &ev.BurnAmount, &ev.PlatformAmount, &ev.RolloverAmount, &ev.EscrowAmount,
			&ev.ParticipantCount, &ev.Winners, &ev.Seed,
			&ev.RegularRefunded, &ev.FreeCarriedOver, &ev.TotalRefunded,
			&winnerSlot, &ev.Referrer,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event row: %w", err)
		}

		ev.PoolType = domain.PoolType(poolType)
		ev.WinnerSlot = int(winnerSlot)
		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit event rows: %w", err)
	}
	return events, nil
}
