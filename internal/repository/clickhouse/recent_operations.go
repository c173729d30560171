package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/habitvault/habitvault-backend/internal/model"
)

// RecentOperations returns up to limit operations, newest first.
func (r *Repository) RecentOperations(ctx context.Context, limit uint64) ([]model.Operation, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("recent_operations", err, start)
	}()

	const query = `
SELECT occurred_at, description
FROM habit_operations
ORDER BY occurred_at DESC
LIMIT ?`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent operations: %w", err)
	}
	defer rows.Close()

	var ops []model.Operation
	for rows.Next() {
		var op model.Operation
		if err = rows.Scan(&op.At, &op.Description); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}
