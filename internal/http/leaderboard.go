package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/Clark-Hu/dishrank/internal/ranking"
)

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cohort, err := ranking.ParseCohort(query.Get("cohort"))
	if err != nil {
		if errors.Is(err, ranking.ErrUnknownCohort) {
			s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "cohort must be trusted or emerging")
			return
		}
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	limit, err := parseLimit(query, 20, 100)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	start := time.Now()
	snap, ds, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "build leaderboard")
		return
	}
	entries := snap.Leaderboard(cohort)
	s.metrics.ObserveLeaderboardBuild(string(cohort), time.Since(start))

	groupNames := make(map[string]string, len(ds.Groups))
	for _, g := range ds.Groups {
		groupNames[g.ID] = g.Name
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	resp := leaderboardResponse{
		Cohort:        string(cohort),
		GlobalAverage: snap.GlobalPercentage(),
		Entries:       make([]leaderboardEntryResponse, 0, len(entries)),
	}
	for i, e := range entries {
		item := toItemResponse(e)
		item.Rank = snap.Rank(e.Item.ID)
		resp.Entries = append(resp.Entries, leaderboardEntryResponse{
			Position:     i + 1,
			itemResponse: item,
			GroupName:    groupNames[e.Item.GroupID],
		})
	}
	s.respondJSON(w, http.StatusOK, resp)
}
