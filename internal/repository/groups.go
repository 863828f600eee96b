package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// GroupsRepository persists venues.
type GroupsRepository struct {
	db querier
}

const groupColumns = `
    id,
    name,
    address,
    zip,
    state,
    phone,
    website,
    instagram,
    delivery_url,
    reservation_url,
    created_at,
    updated_at
`

// GroupCreateParams bundles the fields required to create a venue.
type GroupCreateParams struct {
	ID        string
	Name      string
	Location  domain.Location
	Contact   domain.Contact
	CreatedAt time.Time
}

// Create inserts a venue. A second venue with the same name (case-insensitive)
// fails with ErrConflict.
func (r *GroupsRepository) Create(ctx context.Context, params GroupCreateParams) (domain.Group, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
        INSERT INTO groups (id, name, address, zip, state, phone, website, instagram, delivery_url, reservation_url, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,COALESCE($11, now()),COALESCE($11, now()))
        RETURNING %s
    `, groupColumns)

	c := params.Contact
	row := r.db.QueryRow(ctx, query,
		params.ID, strings.TrimSpace(params.Name),
		params.Location.Address, params.Location.Zip, params.Location.State,
		c.Phone, c.Website, c.Instagram, c.Delivery, c.Reservation,
		nullableTime(params.CreatedAt),
	)
	group, err := scanGroup(row)
	if err != nil {
		return domain.Group{}, mapError(err)
	}
	return group, nil
}

// ensure returns the venue named params.Name, creating it when absent.
func (r *GroupsRepository) ensure(ctx context.Context, params GroupCreateParams) (domain.Group, bool, error) {
	if params.ID == "" {
		params.ID = uuid.NewString()
	}
	query := fmt.Sprintf(`
        INSERT INTO groups (id, name, address, zip, state, phone, website, instagram, delivery_url, reservation_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT ((lower(name))) DO NOTHING
        RETURNING %s
    `, groupColumns)

	c := params.Contact
	row := r.db.QueryRow(ctx, query,
		params.ID, strings.TrimSpace(params.Name),
		params.Location.Address, params.Location.Zip, params.Location.State,
		c.Phone, c.Website, c.Instagram, c.Delivery, c.Reservation,
	)
	group, err := scanGroup(row)
	if err == nil {
		return group, true, nil
	}
	if err != pgx.ErrNoRows {
		return domain.Group{}, false, mapError(err)
	}
	group, err = r.FindByName(ctx, params.Name)
	return group, false, err
}

// GetByID fetches a venue by its identifier.
func (r *GroupsRepository) GetByID(ctx context.Context, id string) (domain.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups WHERE id = $1`, groupColumns)
	group, err := scanGroup(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Group{}, mapError(err)
	}
	return group, nil
}

// FindByName looks a venue up by case-insensitive name.
func (r *GroupsRepository) FindByName(ctx context.Context, name string) (domain.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups WHERE lower(name) = lower($1)`, groupColumns)
	group, err := scanGroup(r.db.QueryRow(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		return domain.Group{}, mapError(err)
	}
	return group, nil
}

// List returns every venue ordered by name.
func (r *GroupsRepository) List(ctx context.Context) ([]domain.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups ORDER BY lower(name), id`, groupColumns)
	return collectGroups(r.db.Query(ctx, query))
}

// UpdateContact patches the contact links and location of a venue. Nil
// fields keep their stored value.
func (r *GroupsRepository) UpdateContact(ctx context.Context, id string, contact domain.Contact, location *domain.Location) (domain.Group, error) {
	var address, zip, state *string
	if location != nil {
		address, zip, state = &location.Address, &location.Zip, &location.State
	}
	query := fmt.Sprintf(`
        UPDATE groups
        SET phone = COALESCE($2, phone),
            website = COALESCE($3, website),
            instagram = COALESCE($4, instagram),
            delivery_url = COALESCE($5, delivery_url),
            reservation_url = COALESCE($6, reservation_url),
            address = COALESCE($7, address),
            zip = COALESCE($8, zip),
            state = COALESCE($9, state),
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, groupColumns)

	row := r.db.QueryRow(ctx, query, id,
		contact.Phone, contact.Website, contact.Instagram, contact.Delivery, contact.Reservation,
		address, zip, state,
	)
	group, err := scanGroup(row)
	if err != nil {
		return domain.Group{}, mapError(err)
	}
	return group, nil
}

func collectGroups(rows pgx.Rows, err error) ([]domain.Group, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func scanGroup(row pgx.Row) (domain.Group, error) {
	var g domain.Group
	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.Location.Address,
		&g.Location.Zip,
		&g.Location.State,
		&g.Contact.Phone,
		&g.Contact.Website,
		&g.Contact.Instagram,
		&g.Contact.Delivery,
		&g.Contact.Reservation,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return domain.Group{}, err
	}
	return g, nil
}
