package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// ItemsRepository provides persistence helpers for dishes.
type ItemsRepository struct {
	db querier
}

const itemColumns = `
    id,
    name,
    group_id,
    image_ref,
    created_at,
    updated_at
`

// ItemCreateParams bundles the fields required to create an item.
type ItemCreateParams struct {
	ID        string
	Name      string
	GroupID   string
	ImageRef  *string
	CreatedAt time.Time
}

// ItemListFilters encapsulates search and pagination options.
type ItemListFilters struct {
	Query   *string
	GroupID *string
	Limit   int
	Cursor  *ItemCursor
}

// ItemCursor allows stable pagination by created_at/id.
type ItemCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// ItemListResult returns the paginated payload.
type ItemListResult struct {
	Items      []domain.Item
	NextCursor *string
}

// Create inserts a new item. An unknown group yields ErrNotFound and a
// duplicate name within the group yields ErrConflict.
func (r *ItemsRepository) Create(ctx context.Context, params ItemCreateParams) (domain.Item, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
        INSERT INTO items (id, name, group_id, image_ref, created_at, updated_at)
        VALUES ($1,$2,$3,$4,COALESCE($5, now()),COALESCE($5, now()))
        RETURNING %s
    `, itemColumns)

	row := r.db.QueryRow(ctx, query, params.ID, strings.TrimSpace(params.Name), params.GroupID, params.ImageRef, nullableTime(params.CreatedAt))
	item, err := scanItem(row)
	if err != nil {
		return domain.Item{}, mapError(err)
	}
	return item, nil
}

// ensure returns the item with the given name inside the group, creating it
// when absent.
func (r *ItemsRepository) ensure(ctx context.Context, params ItemCreateParams) (domain.Item, bool, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
        INSERT INTO items (id, name, group_id, image_ref)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (group_id, lower(name)) DO NOTHING
        RETURNING %s
    `, itemColumns)

	row := r.db.QueryRow(ctx, query, params.ID, strings.TrimSpace(params.Name), params.GroupID, params.ImageRef)
	item, err := scanItem(row)
	if err == nil {
		return item, true, nil
	}
	if err != pgx.ErrNoRows {
		return domain.Item{}, false, mapError(err)
	}
	item, err = r.FindInGroup(ctx, params.GroupID, params.Name)
	return item, false, err
}

// GetByID fetches an item by its identifier.
func (r *ItemsRepository) GetByID(ctx context.Context, id string) (domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE id = $1`, itemColumns)
	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Item{}, mapError(err)
	}
	return item, nil
}

// FindInGroup looks an item up by case-insensitive name within a venue.
func (r *ItemsRepository) FindInGroup(ctx context.Context, groupID, name string) (domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE group_id = $1 AND lower(name) = lower($2)`, itemColumns)
	item, err := scanItem(r.db.QueryRow(ctx, query, groupID, strings.TrimSpace(name)))
	if err != nil {
		return domain.Item{}, mapError(err)
	}
	return item, nil
}

// ListByGroup returns every item of a venue, oldest first.
func (r *ItemsRepository) ListByGroup(ctx context.Context, groupID string) ([]domain.Item, error) {
	query := fmt.Sprintf(`SELECT %s FROM items WHERE group_id = $1 ORDER BY created_at, id`, itemColumns)
	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns items that match the provided filters, newest first.
func (r *ItemsRepository) List(ctx context.Context, filters ItemListFilters) (ItemListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	where := make([]string, 0)
	args := make([]any, 0)
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Query != nil && strings.TrimSpace(*filters.Query) != "" {
		q := "%" + strings.TrimSpace(*filters.Query) + "%"
		p1 := arg(q)
		p2 := arg(q)
		where = append(where, fmt.Sprintf(
			"(name ILIKE %s OR EXISTS (SELECT 1 FROM groups g WHERE g.id = items.group_id AND g.name ILIKE %s))", p1, p2))
	}
	if filters.GroupID != nil && strings.TrimSpace(*filters.GroupID) != "" {
		where = append(where, fmt.Sprintf("group_id = %s", arg(strings.TrimSpace(*filters.GroupID))))
	}
	if filters.Cursor != nil {
		cursorCreated := arg(filters.Cursor.CreatedAt)
		cursorID := arg(filters.Cursor.ID)
		where = append(where, fmt.Sprintf("(created_at, id) < (%s, %s)", cursorCreated, cursorID))
	}

	var qb strings.Builder
	qb.WriteString("SELECT ")
	qb.WriteString(itemColumns)
	qb.WriteString(" FROM items")
	if len(where) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(where, " AND "))
	}
	qb.WriteString(" ORDER BY created_at DESC, id DESC")
	fmt.Fprintf(&qb, " LIMIT %d", filters.Limit)

	rows, err := r.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return ItemListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return ItemListResult{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return ItemListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(ItemCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return ItemListResult{}, err
		}
		nextCursor = &token
	}

	return ItemListResult{Items: items, NextCursor: nextCursor}, nil
}

// UpdateMetadata renames an item or replaces its image reference. Nil fields
// keep their stored value.
func (r *ItemsRepository) UpdateMetadata(ctx context.Context, id string, name, imageRef *string) (domain.Item, error) {
	query := fmt.Sprintf(`
        UPDATE items
        SET name = COALESCE($2, name),
            image_ref = COALESCE($3, image_ref),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, itemColumns)

	item, err := scanItem(r.db.QueryRow(ctx, query, id, name, imageRef))
	if err != nil {
		return domain.Item{}, mapError(err)
	}
	return item, nil
}

// Delete removes an item together with its ratings.
func (r *ItemsRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.GroupID,
		&item.ImageRef,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func encodeCursor(c ItemCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into an ItemCursor.
func DecodeCursor(token string) (*ItemCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor ItemCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
