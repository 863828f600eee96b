package dataset

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/ranking"
)

const sample = `{
  "groups": [
    {"id": "rest1", "name": "Burger Palace", "address": "123 Michigan Ave", "zip": "60601", "state": "IL",
     "phone": "(312) 123-4567", "doordash": "https://doordash.com/store/burger-palace"},
    {"id": "rest2", "name": "Juicy Lucy's", "zip": "60605"}
  ],
  "items": [
    {"id": "burger1", "name": "Classic", "groupId": "rest1"},
    {"id": "burger2", "name": "Mushroom Swiss", "groupId": "rest2", "imageRef": "img/2.png"},
    {"id": "burger3", "name": "Ghost", "groupId": "rest9"}
  ],
  "ratings": [
    {"id": "rank1", "subjectId": "burger1", "raterId": "user1", "score": 2, "timestamp": "2024-03-01T12:00:00Z", "comment": "Amazing"},
    {"id": "rank2", "subjectId": "burger1", "raterId": "user2", "score": 1, "timestamp": "2024-03-02T12:00:00Z"},
    {"id": "rank3", "subjectId": "burger2", "raterId": "user1", "score": 0, "timestamp": "2024-03-03T12:00:00Z"},
    {"id": "rank4", "subjectId": "burger3", "raterId": "user1", "score": 2, "timestamp": "2024-03-03T12:00:00Z"},
    {"id": "rank5", "subjectId": "burger2", "raterId": "user2", "score": 7, "timestamp": "2024-03-03T12:00:00Z"},
    {"id": "rank1", "subjectId": "burger2", "raterId": "user3", "score": -2, "timestamp": "2024-03-04T12:00:00Z"}
  ],
  "users": [{"id": "user1", "userId": "alice"}]
}`

func TestDecode(t *testing.T) {
	ds, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, ds.Groups, 2)
	require.Len(t, ds.Items, 3)
	require.Len(t, ds.Ratings, 6)

	g := ds.Groups[0]
	require.Equal(t, "60601", g.Location.Zip)
	require.NotNil(t, g.Contact.Delivery)
	require.Nil(t, g.Contact.Website)

	r := ds.Ratings[0]
	require.Equal(t, "burger1", r.ItemID)
	require.Equal(t, domain.Score(2), r.Score)
	require.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), r.CreatedAt.UTC())
	require.Equal(t, "Amazing", *r.Comment)
	require.False(t, ds.Ratings[4].Score.Valid())
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"groups": [`))
	require.Error(t, err)
}

func TestValidateDropsInconsistentRecords(t *testing.T) {
	ds, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	clean, problems := Validate(ds)
	require.Len(t, clean.Groups, 2)
	require.Len(t, clean.Items, 2)
	require.Len(t, clean.Ratings, 3)

	kinds := map[ProblemKind][]string{}
	for _, p := range problems {
		kinds[p.Kind] = append(kinds[p.Kind], p.ID)
	}
	require.Equal(t, []string{"burger3"}, kinds[OrphanItem])
	require.Equal(t, []string{"rank4"}, kinds[DanglingScore])
	require.Equal(t, []string{"rank5"}, kinds[InvalidScore])
	require.Equal(t, []string{"rank1"}, kinds[DuplicateID])

	// Every surviving rating resolves to an item, every item to a group.
	snap := ranking.NewSnapshot(clean.Groups, clean.Items, clean.Ratings)
	require.Empty(t, snap.Orphans())
	require.Equal(t, 2, snap.Len())
}

func TestEncodeRoundTripKeepsReferences(t *testing.T) {
	ds, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	clean, _ := Validate(ds)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, clean))
	require.Contains(t, buf.String(), `"subjectId": "burger1"`)
	require.Contains(t, buf.String(), `"doordash"`)

	again, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, again.Ratings, len(clean.Ratings))
	_, problems := Validate(again)
	require.Empty(t, problems)
}

func TestProblemString(t *testing.T) {
	p := Problem{Kind: OrphanItem, Entity: "item", ID: "x", Detail: `unknown group "g"`}
	require.Equal(t, `orphan_item item "x": unknown group "g"`, p.String())
}

func TestValidateDropsRatingsWithoutTimestamp(t *testing.T) {
	ds, err := Decode(strings.NewReader(`{
  "groups": [{"id": "g1", "name": "Diner"}],
  "items": [{"id": "i1", "name": "Patty Melt", "groupId": "g1"}],
  "ratings": [
    {"id": "r1", "subjectId": "i1", "raterId": "u1", "score": 2},
    {"id": "r2", "subjectId": "i1", "raterId": "u2", "score": 1, "timestamp": "2024-05-01T09:30:00Z"}
  ]
}`))
	require.NoError(t, err)
	require.True(t, ds.Ratings[0].CreatedAt.IsZero())

	clean, problems := Validate(ds)
	require.Len(t, clean.Ratings, 1)
	require.Equal(t, "r2", clean.Ratings[0].ID)
	require.Len(t, problems, 1)
	require.Equal(t, MissingTime, problems[0].Kind)
	require.Equal(t, "r1", problems[0].ID)
}
