// Package dataset reads and writes the flat JSON export of groups, items and
// ratings, and checks its references before anything is ranked or stored.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

type document struct {
	Groups  []groupRecord     `json:"groups"`
	Items   []itemRecord      `json:"items"`
	Ratings []ratingRecord    `json:"ratings"`
	Users   []json.RawMessage `json:"users,omitempty"`
}

type groupRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Zip            string    `json:"zip,omitempty"`
	State          string    `json:"state,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Website        *string   `json:"website,omitempty"`
	Instagram      *string   `json:"instagram,omitempty"`
	Delivery       *string   `json:"doordash,omitempty"`
	ReservationURL *string   `json:"reservationUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt,omitzero"`
}

type itemRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GroupID   string    `json:"groupId"`
	ImageRef  *string   `json:"imageRef,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type ratingRecord struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subjectId"`
	RaterID   string    `json:"raterId"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	Comment   *string   `json:"comment,omitempty"`
	PhotoRef  *string   `json:"photoRef,omitempty"`
}

// Decode parses a dataset document. It does not validate references; see Validate.
func Decode(r io.Reader) (domain.Dataset, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return domain.Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}

	ds := domain.Dataset{
		Groups:  make([]domain.Group, 0, len(doc.Groups)),
		Items:   make([]domain.Item, 0, len(doc.Items)),
		Ratings: make([]domain.Rating, 0, len(doc.Ratings)),
	}
	for _, g := range doc.Groups {
		ds.Groups = append(ds.Groups, domain.Group{
			ID:   g.ID,
			Name: g.Name,
			Location: domain.Location{
				Address: g.Address,
				Zip:     g.Zip,
				State:   g.State,
			},
			Contact: domain.Contact{
				Phone:       g.Phone,
				Website:     g.Website,
				Instagram:   g.Instagram,
				Delivery:    g.Delivery,
				Reservation: g.ReservationURL,
			},
			CreatedAt: g.CreatedAt,
			UpdatedAt: g.CreatedAt,
		})
	}
	for _, it := range doc.Items {
		ds.Items = append(ds.Items, domain.Item{
			ID:        it.ID,
			Name:      it.Name,
			GroupID:   it.GroupID,
			ImageRef:  it.ImageRef,
			CreatedAt: it.CreatedAt,
			UpdatedAt: it.CreatedAt,
		})
	}
	for _, r := range doc.Ratings {
		score := domain.Score(r.Score)
		if r.Score < int(domain.MinScore) || r.Score > int(domain.MaxScore) {
			// Keep the out-of-range marker for Validate instead of wrapping around int8.
			score = domain.MaxScore + 1
		}
		ds.Ratings = append(ds.Ratings, domain.Rating{
			ID:        r.ID,
			ItemID:    r.SubjectID,
			RaterID:   r.RaterID,
			Score:     score,
			Comment:   r.Comment,
			PhotoRef:  r.PhotoRef,
			CreatedAt: r.Timestamp,
		})
	}
	return ds, nil
}

// Encode writes ds as an indented dataset document.
func Encode(w io.Writer, ds domain.Dataset) error {
	doc := document{
		Groups:  make([]groupRecord, 0, len(ds.Groups)),
		Items:   make([]itemRecord, 0, len(ds.Items)),
		Ratings: make([]ratingRecord, 0, len(ds.Ratings)),
	}
	for _, g := range ds.Groups {
		doc.Groups = append(doc.Groups, groupRecord{
			ID:             g.ID,
			Name:           g.Name,
			Address:        g.Location.Address,
			Zip:            g.Location.Zip,
			State:          g.Location.State,
			Phone:          g.Contact.Phone,
			Website:        g.Contact.Website,
			Instagram:      g.Contact.Instagram,
			Delivery:       g.Contact.Delivery,
			ReservationURL: g.Contact.Reservation,
			CreatedAt:      g.CreatedAt,
		})
	}
	for _, it := range ds.Items {
		doc.Items = append(doc.Items, itemRecord{
			ID:        it.ID,
			Name:      it.Name,
			GroupID:   it.GroupID,
			ImageRef:  it.ImageRef,
			CreatedAt: it.CreatedAt,
		})
	}
	for _, r := range ds.Ratings {
		doc.Ratings = append(doc.Ratings, ratingRecord{
			ID:        r.ID,
			SubjectID: r.ItemID,
			RaterID:   r.RaterID,
			Score:     int(r.Score),
			Timestamp: r.CreatedAt,
			Comment:   r.Comment,
			PhotoRef:  r.PhotoRef,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}
