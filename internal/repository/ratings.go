package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// RatingsRepository provides helpers for item ratings.
type RatingsRepository struct {
	db querier
}

const ratingColumns = `
    id,
    item_id,
    rater_id,
    score,
    comment,
    photo_ref,
    created_at
`

// RatingCreateParams captures the payload required to record a rating.
type RatingCreateParams struct {
	ID        string
	ItemID    string
	RaterID   string
	Score     domain.Score
	Comment   *string
	PhotoRef  *string
	CreatedAt time.Time
}

// Actor identifies who is asking for a mutation.
type Actor struct {
	RaterID string
	Admin   bool
}

// Create records a rating. An unknown item yields ErrNotFound.
func (r *RatingsRepository) Create(ctx context.Context, params RatingCreateParams) (domain.Rating, error) {
	if !params.Score.Valid() {
		return domain.Rating{}, fmt.Errorf("create rating: score %d out of range", params.Score)
	}
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
        INSERT INTO ratings (id, item_id, rater_id, score, comment, photo_ref, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, now()))
        RETURNING %s
    `, ratingColumns)

	row := r.db.QueryRow(ctx, query,
		params.ID, params.ItemID, params.RaterID, int16(params.Score),
		params.Comment, params.PhotoRef, nullableTime(params.CreatedAt),
	)
	rating, err := scanRating(row)
	if err != nil {
		return domain.Rating{}, mapError(err)
	}
	return rating, nil
}

// GetByID fetches a single rating.
func (r *RatingsRepository) GetByID(ctx context.Context, id string) (domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE id = $1`, ratingColumns)
	rating, err := scanRating(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Rating{}, mapError(err)
	}
	return rating, nil
}

// ListByItem returns every rating of an item, newest first.
func (r *RatingsRepository) ListByItem(ctx context.Context, itemID string) ([]domain.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE item_id = $1 ORDER BY created_at DESC, id DESC`, ratingColumns)
	return collectRatings(r.db.Query(ctx, query, itemID))
}

// ListByRater returns the most recent ratings of a rater. Limit defaults to 10.
func (r *RatingsRepository) ListByRater(ctx context.Context, raterID string, limit int) ([]domain.Rating, error) {
	if limit <= 0 {
		limit = 10
	} else if limit > 100 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE rater_id = $1 ORDER BY created_at DESC, id DESC LIMIT %d`, ratingColumns, limit)
	return collectRatings(r.db.Query(ctx, query, raterID))
}

// RaterStats summarises everything one rater has submitted.
type RaterStats struct {
	Ratings int
	Items   int
}

// StatsByRater counts a rater's ratings and the distinct items they cover.
func (r *RatingsRepository) StatsByRater(ctx context.Context, raterID string) (RaterStats, error) {
	var stats RaterStats
	err := r.db.QueryRow(ctx, `SELECT count(*), count(DISTINCT item_id) FROM ratings WHERE rater_id = $1`, raterID).
		Scan(&stats.Ratings, &stats.Items)
	if err != nil {
		return RaterStats{}, err
	}
	return stats, nil
}

// Delete removes a rating. Only its rater or an admin may delete it.
func (r *RatingsRepository) Delete(ctx context.Context, id string, actor Actor) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM ratings WHERE id = $1 AND ($2 OR rater_id = $3)`, id, actor.Admin, actor.RaterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ratings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}

func collectRatings(rows pgx.Rows, err error) ([]domain.Rating, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func scanRating(row pgx.Row) (domain.Rating, error) {
	var (
		rating domain.Rating
		score  int16
	)
	err := row.Scan(
		&rating.ID,
		&rating.ItemID,
		&rating.RaterID,
		&score,
		&rating.Comment,
		&rating.PhotoRef,
		&rating.CreatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	rating.Score = domain.Score(score)
	return rating, nil
}
