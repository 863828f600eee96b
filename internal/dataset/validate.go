package dataset

import (
	"fmt"
	"strings"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// ProblemKind classifies a record dropped by Validate.
type ProblemKind string

const (
	DuplicateID   ProblemKind = "duplicate_id"
	MissingID     ProblemKind = "missing_id"
	MissingName   ProblemKind = "missing_name"
	OrphanItem    ProblemKind = "orphan_item"
	DanglingScore ProblemKind = "dangling_rating"
	InvalidScore  ProblemKind = "invalid_score"
	MissingTime   ProblemKind = "missing_timestamp"
)

// Problem describes one dropped record.
type Problem struct {
	Kind   ProblemKind
	Entity string
	ID     string
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %s %q: %s", p.Kind, p.Entity, p.ID, p.Detail)
}

// Validate resolves every rating→item and item→group reference and returns a
// copy containing only consistent records, in their original order.
func Validate(ds domain.Dataset) (domain.Dataset, []Problem) {
	var problems []Problem
	out := domain.Dataset{
		Groups:  make([]domain.Group, 0, len(ds.Groups)),
		Items:   make([]domain.Item, 0, len(ds.Items)),
		Ratings: make([]domain.Rating, 0, len(ds.Ratings)),
	}

	groups := make(map[string]struct{}, len(ds.Groups))
	for _, g := range ds.Groups {
		switch {
		case g.ID == "":
			problems = append(problems, Problem{MissingID, "group", g.ID, "group without id"})
		case strings.TrimSpace(g.Name) == "":
			problems = append(problems, Problem{MissingName, "group", g.ID, "group without name"})
		default:
			if _, dup := groups[g.ID]; dup {
				problems = append(problems, Problem{DuplicateID, "group", g.ID, "keeping first occurrence"})
				continue
			}
			groups[g.ID] = struct{}{}
			out.Groups = append(out.Groups, g)
		}
	}

	items := make(map[string]struct{}, len(ds.Items))
	for _, it := range ds.Items {
		if it.ID == "" {
			problems = append(problems, Problem{MissingID, "item", it.ID, "item without id"})
			continue
		}
		if strings.TrimSpace(it.Name) == "" {
			problems = append(problems, Problem{MissingName, "item", it.ID, "item without name"})
			continue
		}
		if _, dup := items[it.ID]; dup {
			problems = append(problems, Problem{DuplicateID, "item", it.ID, "keeping first occurrence"})
			continue
		}
		if _, ok := groups[it.GroupID]; !ok {
			problems = append(problems, Problem{OrphanItem, "item", it.ID, fmt.Sprintf("unknown group %q", it.GroupID)})
			continue
		}
		items[it.ID] = struct{}{}
		out.Items = append(out.Items, it)
	}

	ratings := make(map[string]struct{}, len(ds.Ratings))
	for _, r := range ds.Ratings {
		if r.ID == "" {
			problems = append(problems, Problem{MissingID, "rating", r.ID, "rating without id"})
			continue
		}
		if _, dup := ratings[r.ID]; dup {
			problems = append(problems, Problem{DuplicateID, "rating", r.ID, "keeping first occurrence"})
			continue
		}
		if !r.Score.Valid() {
			problems = append(problems, Problem{InvalidScore, "rating", r.ID, "score outside -2..2"})
			continue
		}
		if r.CreatedAt.IsZero() {
			problems = append(problems, Problem{MissingTime, "rating", r.ID, "rating without timestamp"})
			continue
		}
		if _, ok := items[r.ItemID]; !ok {
			problems = append(problems, Problem{DanglingScore, "rating", r.ID, fmt.Sprintf("unknown item %q", r.ItemID)})
			continue
		}
		ratings[r.ID] = struct{}{}
		out.Ratings = append(out.Ratings, r)
	}

	return out, problems
}
