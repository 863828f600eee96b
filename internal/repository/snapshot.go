package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// Snapshot loads every group, item and rating from one repeatable-read
// transaction, so derived scores are computed over a consistent view.
// Rows come back in insertion order.
func (r *Repository) Snapshot(ctx context.Context) (domain.Dataset, error) {
	var ds domain.Dataset
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := r.inTx(ctx, opts, func(tx pgx.Tx) error {
		var err error
		ds.Groups, err = collectGroups(tx.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM groups ORDER BY created_at, id`, groupColumns)))
		if err != nil {
			return fmt.Errorf("load groups: %w", err)
		}

		rows, err := tx.Query(ctx, fmt.Sprintf(`SELECT %s FROM items ORDER BY created_at, id`, itemColumns))
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		ds.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
			return scanItem(row)
		})
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}

		ds.Ratings, err = collectRatings(tx.Query(ctx,
			fmt.Sprintf(`SELECT %s FROM ratings ORDER BY created_at, id`, ratingColumns)))
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	return ds, nil
}
