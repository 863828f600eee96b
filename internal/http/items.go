package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/ranking"
	"github.com/Clark-Hu/dishrank/internal/repository"
)

type itemCreateRequest struct {
	Name     string  `json:"name"`
	GroupID  string  `json:"groupId"`
	ImageRef *string `json:"imageRef"`
}

type itemUpdateRequest struct {
	Name     *string `json:"name"`
	ImageRef *string `json:"imageRef"`
}

type rateItemRequest struct {
	Stars    int     `json:"stars"`
	Comment  *string `json:"comment"`
	PhotoRef *string `json:"photoRef"`
}

type itemListResponse struct {
	Items      []itemResponse `json:"items"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	filters, err := buildItemFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Items.List(r.Context(), filters)
	if err != nil {
		s.respondRepoError(w, err, "list items")
		return
	}
	snap, _, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "list items")
		return
	}

	items := make([]itemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, scoredItem(snap, item))
	}
	s.respondJSON(w, http.StatusOK, itemListResponse{Items: items, NextCursor: result.NextCursor})
}

func buildItemFilters(query url.Values) (repository.ItemListFilters, error) {
	var filters repository.ItemListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("groupId")); val != "" {
		filters.GroupID = &val
	}
	limit, err := parseLimit(query, 20, 100)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req itemCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.GroupID) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name and groupId are required")
		return
	}

	item, err := s.repo.Items.Create(r.Context(), repository.ItemCreateParams{
		Name:     req.Name,
		GroupID:  strings.TrimSpace(req.GroupID),
		ImageRef: normalizeStringPtr(req.ImageRef),
	})
	if err != nil {
		s.respondRepoError(w, err, "create item")
		return
	}

	w.Header().Set("Location", "/items/"+url.PathEscape(item.ID))
	s.respondJSON(w, http.StatusCreated, toItemResponse(ranking.Entry{Item: item}))
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	snap, ds, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "fetch item")
		return
	}
	entry, ok := snap.Entry(itemID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}

	resp := itemDetailResponse{
		itemResponse:  toItemResponse(entry),
		GlobalAverage: snap.GlobalPercentage(),
	}
	resp.Rank = snap.Rank(itemID)
	if !entry.LastRatedAt.IsZero() {
		last := entry.LastRatedAt
		resp.LastRatedAt = &last
	}
	for _, g := range ds.Groups {
		if g.ID == entry.Item.GroupID {
			group := toGroupResponse(g)
			resp.Group = &group
			break
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req itemUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name cannot be empty")
		return
	}
	if req.Name == nil && req.ImageRef == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "nothing to update")
		return
	}

	item, err := s.repo.Items.UpdateMetadata(r.Context(), itemID, normalizeStringPtr(req.Name), normalizeStringPtr(req.ImageRef))
	if err != nil {
		s.respondRepoError(w, err, "update item")
		return
	}
	snap, _, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "update item")
		return
	}
	s.respondJSON(w, http.StatusOK, scoredItem(snap, item))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err := s.repo.Items.Delete(r.Context(), itemID); err != nil {
		s.respondRepoError(w, err, "delete item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItemRatings(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if _, err := s.repo.Items.GetByID(r.Context(), itemID); err != nil {
		s.respondRepoError(w, err, "list ratings")
		return
	}
	ratings, err := s.repo.Ratings.ListByItem(r.Context(), itemID)
	if err != nil {
		s.respondRepoError(w, err, "list ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": toRatingResponses(ratings)})
}

func (s *Server) handleRateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathParam(r, "itemID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	raterID := strings.TrimSpace(r.Header.Get("X-Rater-Id"))
	if raterID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req rateItemRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	score, err := domain.ScoreFromStars(req.Stars)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "stars must be an integer between 1 and 5")
		return
	}

	result, err := s.repo.Submit(r.Context(), repository.SubmitParams{
		ItemID:   itemID,
		RaterID:  raterID,
		Score:    score,
		Comment:  normalizeStringPtr(req.Comment),
		PhotoRef: normalizeStringPtr(req.PhotoRef),
	})
	if err != nil {
		s.respondRepoError(w, err, "record rating")
		return
	}
	s.metrics.IncRatingsSubmitted()
	s.respondJSON(w, http.StatusCreated, toRatingResponse(result.Rating))
}
