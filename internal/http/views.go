package httpserver

import (
	"context"
	"time"

	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/ranking"
)

type locationBody struct {
	Address string `json:"address"`
	Zip     string `json:"zip"`
	State   string `json:"state"`
}

type contactBody struct {
	Phone       *string `json:"phone,omitempty"`
	Website     *string `json:"website,omitempty"`
	Instagram   *string `json:"instagram,omitempty"`
	Delivery    *string `json:"delivery,omitempty"`
	Reservation *string `json:"reservation,omitempty"`
}

func (c contactBody) domain() domain.Contact {
	return domain.Contact{
		Phone:       normalizeStringPtr(c.Phone),
		Website:     normalizeStringPtr(c.Website),
		Instagram:   normalizeStringPtr(c.Instagram),
		Delivery:    normalizeStringPtr(c.Delivery),
		Reservation: normalizeStringPtr(c.Reservation),
	}
}

type groupResponse struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Location  locationBody `json:"location"`
	Contact   contactBody  `json:"contact"`
	CreatedAt time.Time    `json:"createdAt"`
}

type groupSummaryResponse struct {
	groupResponse
	ItemCount    int `json:"itemCount"`
	AverageScore int `json:"averageScore"`
}

type raterStatsResponse struct {
	Ratings int `json:"ratings"`
	Items   int `json:"items"`
}

type groupDetailResponse struct {
	groupResponse
	Items []itemResponse `json:"items"`
}

type itemResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	GroupID       string  `json:"groupId"`
	ImageRef      *string `json:"imageRef,omitempty"`
	WeightedScore int     `json:"weightedScore"`
	RawScore      int     `json:"rawScore"`
	Votes         int     `json:"votes"`
	Cohort        string  `json:"cohort"`
	Stars         float64 `json:"stars"`
	Rank          int     `json:"rank,omitempty"`
}

type itemDetailResponse struct {
	itemResponse
	Group         *groupResponse `json:"group,omitempty"`
	GlobalAverage int            `json:"globalAverage"`
	LastRatedAt   *time.Time     `json:"lastRatedAt,omitempty"`
}

type ratingResponse struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"itemId"`
	RaterID    string    `json:"raterId"`
	Stars      int       `json:"stars"`
	Score      int       `json:"score"`
	Percentage int       `json:"percentage"`
	Comment    *string   `json:"comment,omitempty"`
	PhotoRef   *string   `json:"photoRef,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type leaderboardEntryResponse struct {
	Position int `json:"position"`
	itemResponse
	GroupName string `json:"groupName,omitempty"`
}

type leaderboardResponse struct {
	Cohort        string                     `json:"cohort"`
	GlobalAverage int                        `json:"globalAverage"`
	Entries       []leaderboardEntryResponse `json:"entries"`
}

// loadSnapshot reads the current dataset and indexes it. Nothing derived is
// kept between requests.
func (s *Server) loadSnapshot(ctx context.Context) (*ranking.Snapshot, domain.Dataset, error) {
	ds, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, domain.Dataset{}, err
	}
	return ranking.NewSnapshot(ds.Groups, ds.Items, ds.Ratings), ds, nil
}

func starValue(percentage int) float64 {
	full, half := ranking.Stars(percentage)
	if half {
		return float64(full) + 0.5
	}
	return float64(full)
}

func toGroupResponse(g domain.Group) groupResponse {
	return groupResponse{
		ID:   g.ID,
		Name: g.Name,
		Location: locationBody{
			Address: g.Location.Address,
			Zip:     g.Location.Zip,
			State:   g.Location.State,
		},
		Contact: contactBody{
			Phone:       g.Contact.Phone,
			Website:     g.Contact.Website,
			Instagram:   g.Contact.Instagram,
			Delivery:    g.Contact.Delivery,
			Reservation: g.Contact.Reservation,
		},
		CreatedAt: g.CreatedAt,
	}
}

// toItemResponse scores an entry. The star rating follows the score that
// orders the entry's cohort.
func toItemResponse(e ranking.Entry) itemResponse {
	cohort := e.Cohort()
	stars := starValue(e.WeightedScore)
	if cohort == ranking.Emerging {
		stars = starValue(e.RawScore)
	}
	return itemResponse{
		ID:            e.Item.ID,
		Name:          e.Item.Name,
		GroupID:       e.Item.GroupID,
		ImageRef:      e.Item.ImageRef,
		WeightedScore: e.WeightedScore,
		RawScore:      e.RawScore,
		Votes:         e.Votes,
		Cohort:        string(cohort),
		Stars:         stars,
	}
}

func scoredItem(snap *ranking.Snapshot, item domain.Item) itemResponse {
	entry, ok := snap.Entry(item.ID)
	if !ok {
		// created after the snapshot was taken
		entry = ranking.Entry{Item: item}
	}
	resp := toItemResponse(entry)
	resp.Rank = snap.Rank(item.ID)
	return resp
}

func toRatingResponse(r domain.Rating) ratingResponse {
	return ratingResponse{
		ID:         r.ID,
		ItemID:     r.ItemID,
		RaterID:    r.RaterID,
		Stars:      r.Score.Stars(),
		Score:      int(r.Score),
		Percentage: ranking.RatingPercentage(r.Score),
		Comment:    r.Comment,
		PhotoRef:   r.PhotoRef,
		CreatedAt:  r.CreatedAt,
	}
}

func toRatingResponses(ratings []domain.Rating) []ratingResponse {
	out := make([]ratingResponse, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, toRatingResponse(r))
	}
	return out
}
