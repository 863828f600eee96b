package ranking

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/Clark-Hu/dishrank/internal/domain"
)

// ErrUnknownCohort is returned by ParseCohort for unrecognised names.
var ErrUnknownCohort = errors.New("ranking: unknown cohort")

// Cohort selects one half of the leaderboard.
type Cohort string

const (
	// Trusted holds items with at least TrustThreshold votes, ordered by weighted score.
	Trusted Cohort = "trusted"
	// Emerging holds items below TrustThreshold votes, ordered by raw score.
	Emerging Cohort = "emerging"
)

// ParseCohort validates a cohort name. An empty name selects Trusted.
func ParseCohort(name string) (Cohort, error) {
	switch Cohort(name) {
	case "", Trusted:
		return Trusted, nil
	case Emerging:
		return Emerging, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCohort, name)
	}
}

// Of returns the cohort an item with the given vote count belongs to.
func Of(votes int) Cohort {
	if votes >= TrustThreshold {
		return Trusted
	}
	return Emerging
}

// Entry is an item annotated with its derived scores.
type Entry struct {
	Item          domain.Item
	WeightedScore int
	RawScore      int
	Votes         int
	LastRatedAt   time.Time
}

// Cohort reports which leaderboard half the entry belongs to.
func (e Entry) Cohort() Cohort {
	return Of(e.Votes)
}

// Snapshot indexes one immutable copy of groups, items and ratings. Building
// it is O(items + ratings); it holds no references to the caller's slices
// beyond the values copied in.
type Snapshot struct {
	entries    []Entry
	byID       map[string]int
	groups     map[string]struct{}
	globalMean float64
	ratings    int
}

// NewSnapshot tallies ratings per item and computes every entry's scores.
// Item order is preserved and used as the final tie-break.
func NewSnapshot(groups []domain.Group, items []domain.Item, ratings []domain.Rating) *Snapshot {
	s := &Snapshot{
		entries:    make([]Entry, 0, len(items)),
		byID:       make(map[string]int, len(items)),
		groups:     make(map[string]struct{}, len(groups)),
		globalMean: GlobalAverage(ratings),
		ratings:    len(ratings),
	}
	for _, g := range groups {
		s.groups[g.ID] = struct{}{}
	}

	tallies := make(map[string]*tally, len(items))
	for _, r := range ratings {
		t, ok := tallies[r.ItemID]
		if !ok {
			t = &tally{}
			tallies[r.ItemID] = t
		}
		t.add(r)
	}

	for _, item := range items {
		if _, dup := s.byID[item.ID]; dup {
			continue
		}
		var t tally
		if found, ok := tallies[item.ID]; ok {
			t = *found
		}
		e := Entry{
			Item:          item,
			WeightedScore: t.weightedScore(s.globalMean),
			RawScore:      t.rawScore(),
			Votes:         t.votes,
		}
		if t.votes > 0 {
			e.LastRatedAt = t.lastRated.UTC()
		}
		s.byID[item.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// GlobalAverage is the mean over every rating in the snapshot.
func (s *Snapshot) GlobalAverage() float64 {
	return s.globalMean
}

// GlobalPercentage is the global average as a percentage. It is 0 when the
// snapshot holds no ratings.
func (s *Snapshot) GlobalPercentage() int {
	if s.ratings == 0 {
		return 0
	}
	return Percentage(s.globalMean)
}

// Len is the number of distinct items in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Entry returns the scores of one item. Unknown ids yield ok == false.
func (s *Snapshot) Entry(itemID string) (Entry, bool) {
	idx, ok := s.byID[itemID]
	if !ok {
		return Entry{}, false
	}
	return s.entries[idx], true
}

// Orphans lists items whose group is missing from the snapshot, in input order.
func (s *Snapshot) Orphans() []string {
	var ids []string
	for _, e := range s.entries {
		if !s.hasGroup(e.Item) {
			ids = append(ids, e.Item.ID)
		}
	}
	return ids
}

func (s *Snapshot) hasGroup(item domain.Item) bool {
	_, ok := s.groups[item.GroupID]
	return ok
}

// Leaderboard returns the ordered entries of one cohort. Orphaned items are
// left out. Each call sorts a fresh copy.
func (s *Snapshot) Leaderboard(cohort Cohort) []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Cohort() != cohort || !s.hasGroup(e.Item) {
			continue
		}
		out = append(out, e)
	}
	if cohort == Emerging {
		slices.SortStableFunc(out, compareEmerging)
	} else {
		slices.SortStableFunc(out, compareTrusted)
	}
	return out
}

// GroupEntries returns the items of one group ordered like the trusted cohort.
func (s *Snapshot) GroupEntries(groupID string) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if e.Item.GroupID == groupID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, compareTrusted)
	return out
}

// GroupSummary aggregates the items of one group.
type GroupSummary struct {
	Items        int
	AverageScore int
}

// GroupSummary counts the items of groupID and averages their weighted
// scores, rounded half up. A group without items yields the zero value.
func (s *Snapshot) GroupSummary(groupID string) GroupSummary {
	var sum GroupSummary
	total := 0
	for _, e := range s.entries {
		if e.Item.GroupID != groupID {
			continue
		}
		sum.Items++
		total += e.WeightedScore
	}
	if sum.Items > 0 {
		sum.AverageScore = int(math.Floor(float64(total)/float64(sum.Items) + 0.5))
	}
	return sum
}

// Rank returns the 1-based position of itemID in the single global ordering
// (weighted score, then votes) over every item regardless of cohort. Unknown
// ids return 0.
func (s *Snapshot) Rank(itemID string) int {
	target, ok := s.byID[itemID]
	if !ok {
		return 0
	}
	e := s.entries[target]
	rank := 1
	for i, other := range s.entries {
		c := compareTrusted(other, e)
		if c < 0 || (c == 0 && i < target) {
			rank++
		}
	}
	return rank
}

// compareTrusted orders by weighted score desc, then votes desc.
func compareTrusted(a, b Entry) int {
	if a.WeightedScore != b.WeightedScore {
		return b.WeightedScore - a.WeightedScore
	}
	return b.Votes - a.Votes
}

// compareEmerging orders by raw score desc, votes desc, then most recent rating.
func compareEmerging(a, b Entry) int {
	if a.RawScore != b.RawScore {
		return b.RawScore - a.RawScore
	}
	if a.Votes != b.Votes {
		return b.Votes - a.Votes
	}
	return b.LastRatedAt.Compare(a.LastRatedAt)
}

// Leaderboard builds a snapshot and returns one cohort.
func Leaderboard(groups []domain.Group, items []domain.Item, ratings []domain.Rating, cohort Cohort) []Entry {
	return NewSnapshot(groups, items, ratings).Leaderboard(cohort)
}

// Rank builds a snapshot and returns the global position of itemID, or 0.
func Rank(itemID string, items []domain.Item, ratings []domain.Rating) int {
	return NewSnapshot(nil, items, ratings).Rank(itemID)
}
