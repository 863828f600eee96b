package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// ErrInvalidSubmission is returned when a submission names neither an item
// nor a group/item pair.
var ErrInvalidSubmission = errors.New("repository: submission needs an item id or group and item names")

// SubmitParams describes one rating submission. Either ItemID is set, or
// GroupName and ItemName identify the item, creating both when unknown.
type SubmitParams struct {
	ItemID    string
	GroupName string
	ItemName  string
	Location  domain.Location
	Contact   domain.Contact
	ImageRef  *string
	RaterID   string
	Score     domain.Score
	Comment   *string
	PhotoRef  *string
}

// SubmitResult reports what the submission touched.
type SubmitResult struct {
	Group        domain.Group
	Item         domain.Item
	Rating       domain.Rating
	CreatedGroup bool
	CreatedItem  bool
}

// Submit records a rating in a single transaction, creating the venue and
// the item on first mention. Contact links supplied with the submission are
// merged into an existing venue.
func (r *Repository) Submit(ctx context.Context, params SubmitParams) (SubmitResult, error) {
	byName := strings.TrimSpace(params.GroupName) != "" && strings.TrimSpace(params.ItemName) != ""
	if params.ItemID == "" && !byName {
		return SubmitResult{}, ErrInvalidSubmission
	}
	if strings.TrimSpace(params.RaterID) == "" {
		return SubmitResult{}, fmt.Errorf("%w: rater id is required", ErrInvalidSubmission)
	}

	var result SubmitResult
	err := r.inTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		groups := &GroupsRepository{db: tx}
		items := &ItemsRepository{db: tx}
		ratings := &RatingsRepository{db: tx}

		var err error
		if params.ItemID != "" {
			if result.Item, err = items.GetByID(ctx, params.ItemID); err != nil {
				return err
			}
			if result.Group, err = groups.GetByID(ctx, result.Item.GroupID); err != nil {
				return err
			}
		} else {
			result.Group, result.CreatedGroup, err = groups.ensure(ctx, GroupCreateParams{
				Name:     params.GroupName,
				Location: params.Location,
				Contact:  params.Contact,
			})
			if err != nil {
				return fmt.Errorf("ensure group: %w", err)
			}
			if !result.CreatedGroup && hasContact(params.Contact) {
				if result.Group, err = groups.UpdateContact(ctx, result.Group.ID, params.Contact, nil); err != nil {
					return fmt.Errorf("update group contact: %w", err)
				}
			}
			result.Item, result.CreatedItem, err = items.ensure(ctx, ItemCreateParams{
				Name:     params.ItemName,
				GroupID:  result.Group.ID,
				ImageRef: params.ImageRef,
			})
			if err != nil {
				return fmt.Errorf("ensure item: %w", err)
			}
		}

		result.Rating, err = ratings.Create(ctx, RatingCreateParams{
			ItemID:   result.Item.ID,
			RaterID:  strings.TrimSpace(params.RaterID),
			Score:    params.Score,
			Comment:  params.Comment,
			PhotoRef: params.PhotoRef,
		})
		if err != nil {
			return fmt.Errorf("create rating: %w", err)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

func hasContact(c domain.Contact) bool {
	return c.Phone != nil || c.Website != nil || c.Instagram != nil || c.Delivery != nil || c.Reservation != nil
}
