package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kube-rca/smsgate/internal/model"
)

// EnsureDeliverySchema - delivery_log 테이블 생성 (없으면)
func (p *Postgres) EnsureDeliverySchema(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS delivery_log (
			id          BIGSERIAL    PRIMARY KEY,
			dispatch_id TEXT         NOT NULL,
			destination TEXT         NOT NULL,
			sent        BOOLEAN      NOT NULL,
			reason      TEXT         NOT NULL,
			exit_code   INTEGER,
			output      TEXT,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create delivery_log table: %w", err)
	}
	_, err = p.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS delivery_log_created_at_idx ON delivery_log (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create delivery_log index: %w", err)
	}
	return nil
}

// InsertDeliveries - 한 번의 전송 요청 결과를 batch로 저장
func (p *Postgres) InsertDeliveries(ctx context.Context, dispatchID string, outcomes []model.DeliveryOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range outcomes {
		batch.Queue(`
			INSERT INTO delivery_log (dispatch_id, destination, sent, reason, exit_code, output)
			VALUES ($1, $2, $3, $4, $5, $6);
		`, dispatchID, o.Destination, o.Sent, string(o.Reason), o.CommandExitCode, o.CommandOutput)
	}

	if err := p.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert deliveries: %w", err)
	}
	return nil
}

// ListDeliveries - 최근 전송 이력 조회 (최신순)
func (p *Postgres) ListDeliveries(ctx context.Context, limit int) ([]model.DeliveryRecord, error) {
	rows, err := p.Pool.Query(ctx, `
		SELECT id, dispatch_id, destination, sent, reason, exit_code, output, created_at
		FROM delivery_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	records := []model.DeliveryRecord{}
	for rows.Next() {
		var rec model.DeliveryRecord
		var reason string
		if err := rows.Scan(&rec.ID, &rec.DispatchID, &rec.Destination, &rec.Sent, &reason, &rec.ExitCode, &rec.Output, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		rec.Reason = model.DeliveryReason(reason)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read deliveries: %w", err)
	}
	return records, nil
}
