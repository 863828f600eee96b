package httpserver

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/repository"
)

type groupCreateRequest struct {
	Name     string       `json:"name"`
	Location locationBody `json:"location"`
	Contact  contactBody  `json:"contact"`
}

type groupUpdateRequest struct {
	Location *locationBody `json:"location"`
	Contact  contactBody   `json:"contact"`
}

// handleListGroups lists venues by item count desc, then average weighted
// score desc, then name.
func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	snap, ds, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "list groups")
		return
	}
	out := make([]groupSummaryResponse, 0, len(ds.Groups))
	for _, g := range ds.Groups {
		sum := snap.GroupSummary(g.ID)
		out = append(out, groupSummaryResponse{
			groupResponse: toGroupResponse(g),
			ItemCount:     sum.Items,
			AverageScore:  sum.AverageScore,
		})
	}
	slices.SortStableFunc(out, func(a, b groupSummaryResponse) int {
		if a.ItemCount != b.ItemCount {
			return b.ItemCount - a.ItemCount
		}
		if a.AverageScore != b.AverageScore {
			return b.AverageScore - a.AverageScore
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	s.respondJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req groupCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required")
		return
	}

	group, err := s.repo.Groups.Create(r.Context(), repository.GroupCreateParams{
		Name:     req.Name,
		Location: trimLocation(req.Location),
		Contact:  req.Contact.domain(),
	})
	if err != nil {
		s.respondRepoError(w, err, "create group")
		return
	}

	w.Header().Set("Location", "/groups/"+url.PathEscape(group.ID))
	s.respondJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathParam(r, "groupID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	group, err := s.repo.Groups.GetByID(r.Context(), groupID)
	if err != nil {
		s.respondRepoError(w, err, "fetch group")
		return
	}
	snap, _, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "fetch group")
		return
	}

	entries := snap.GroupEntries(groupID)
	resp := groupDetailResponse{
		groupResponse: toGroupResponse(group),
		Items:         make([]itemResponse, 0, len(entries)),
	}
	for _, e := range entries {
		item := toItemResponse(e)
		item.Rank = snap.Rank(e.Item.ID)
		resp.Items = append(resp.Items, item)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	groupID, err := pathParam(r, "groupID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req groupUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	var location *domain.Location
	if req.Location != nil {
		loc := trimLocation(*req.Location)
		location = &loc
	}
	group, err := s.repo.Groups.UpdateContact(r.Context(), groupID, req.Contact.domain(), location)
	if err != nil {
		s.respondRepoError(w, err, "update group")
		return
	}
	s.respondJSON(w, http.StatusOK, toGroupResponse(group))
}

func trimLocation(l locationBody) domain.Location {
	return domain.Location{
		Address: strings.TrimSpace(l.Address),
		Zip:     strings.TrimSpace(l.Zip),
		State:   strings.TrimSpace(l.State),
	}
}
