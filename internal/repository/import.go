package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// ImportStats counts the rows written by Import. Records whose id or
// case-insensitive name already exists, or whose parent is missing, are
// counted as skipped.
type ImportStats struct {
	Groups  int64
	Items   int64
	Ratings int64
	Skipped int64
}

// Import bulk-loads a dataset in one transaction. It is idempotent: records
// already present are left untouched.
func (r *Repository) Import(ctx context.Context, ds domain.Dataset) (ImportStats, error) {
	var stats ImportStats
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		if stats.Groups, err = runBatch(ctx, tx, groupBatch(ds.Groups)); err != nil {
			return fmt.Errorf("import groups: %w", err)
		}
		if stats.Items, err = runBatch(ctx, tx, itemBatch(ds.Items)); err != nil {
			return fmt.Errorf("import items: %w", err)
		}
		if stats.Ratings, err = runBatch(ctx, tx, ratingBatch(ds.Ratings)); err != nil {
			return fmt.Errorf("import ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	total := int64(len(ds.Groups) + len(ds.Items) + len(ds.Ratings))
	stats.Skipped = total - stats.Groups - stats.Items - stats.Ratings
	return stats, nil
}

func groupBatch(groups []domain.Group) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, g := range groups {
		c := g.Contact
		batch.Queue(`
            INSERT INTO groups (id, name, address, zip, state, phone, website, instagram, delivery_url, reservation_url, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,COALESCE($11, now()),COALESCE($11, now()))
            ON CONFLICT DO NOTHING`,
			g.ID, g.Name, g.Location.Address, g.Location.Zip, g.Location.State,
			c.Phone, c.Website, c.Instagram, c.Delivery, c.Reservation,
			nullableTime(g.CreatedAt),
		)
	}
	return batch
}

func itemBatch(items []domain.Item) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
            INSERT INTO items (id, name, group_id, image_ref, created_at, updated_at)
            SELECT $1::text, $2::text, $3::text, $4::text, COALESCE($5::timestamptz, now()), COALESCE($5::timestamptz, now())
            WHERE EXISTS (SELECT 1 FROM groups WHERE id = $3::text)
            ON CONFLICT DO NOTHING`,
			it.ID, it.Name, it.GroupID, it.ImageRef, nullableTime(it.CreatedAt),
		)
	}
	return batch
}

func ratingBatch(ratings []domain.Rating) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, rt := range ratings {
		batch.Queue(`
            INSERT INTO ratings (id, item_id, rater_id, score, comment, photo_ref, created_at)
            SELECT $1::text, $2::text, $3::text, $4::smallint, $5::text, $6::text, COALESCE($7::timestamptz, now())
            WHERE EXISTS (SELECT 1 FROM items WHERE id = $2::text)
            ON CONFLICT DO NOTHING`,
			rt.ID, rt.ItemID, rt.RaterID, int16(rt.Score), rt.Comment, rt.PhotoRef, nullableTime(rt.CreatedAt),
		)
	}
	return batch
}

// runBatch sends the batch and sums the affected rows.
func runBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int64, error) {
	if batch.Len() == 0 {
		return 0, nil
	}
	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, results.Close()
}
