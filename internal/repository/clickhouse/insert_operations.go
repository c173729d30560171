package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/habitvault/habitvault-backend/internal/model"
)

// InsertOperations stores operation rows in ClickHouse.
func (r *Repository) InsertOperations(ctx context.Context, ops []model.Operation) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("insert_operations", err, start)
	}()

	if len(ops) == 0 {
		return nil
	}

	const query = `
INSERT INTO habit_operations (
	occurred_at,
	description
) VALUES`

	batch, err := r.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare operations batch: %w", err)
	}

	for _, op := range ops {
		if err = batch.Append(
			op.At,
			op.Description,
		); err != nil {
			return fmt.Errorf("append operation: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert operations: %w", err)
	}
	return nil
}
