package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Clark-Hu/dishrank/internal/domain"
	"github.com/Clark-Hu/dishrank/internal/repository"
)

type submitRatingRequest struct {
	GroupName string        `json:"groupName"`
	ItemName  string        `json:"itemName"`
	Stars     int           `json:"stars"`
	Comment   *string       `json:"comment"`
	PhotoRef  *string       `json:"photoRef"`
	ImageRef  *string       `json:"imageRef"`
	Location  *locationBody `json:"location"`
	Contact   contactBody   `json:"contact"`
}

type submitRatingResponse struct {
	Group        groupResponse  `json:"group"`
	Item         itemResponse   `json:"item"`
	Rating       ratingResponse `json:"rating"`
	CreatedGroup bool           `json:"createdGroup"`
	CreatedItem  bool           `json:"createdItem"`
}

// handleSubmitRating records a rating by venue and dish name, creating
// either one on first mention.
func (s *Server) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	raterID := strings.TrimSpace(r.Header.Get("X-Rater-Id"))
	if raterID == "" {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	var req submitRatingRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.GroupName) == "" || strings.TrimSpace(req.ItemName) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "groupName and itemName are required")
		return
	}
	score, err := domain.ScoreFromStars(req.Stars)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "stars must be an integer between 1 and 5")
		return
	}

	params := repository.SubmitParams{
		GroupName: req.GroupName,
		ItemName:  req.ItemName,
		Contact:   req.Contact.domain(),
		ImageRef:  normalizeStringPtr(req.ImageRef),
		RaterID:   raterID,
		Score:     score,
		Comment:   normalizeStringPtr(req.Comment),
		PhotoRef:  normalizeStringPtr(req.PhotoRef),
	}
	if req.Location != nil {
		params.Location = trimLocation(*req.Location)
	}

	result, err := s.repo.Submit(r.Context(), params)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSubmission) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		s.respondRepoError(w, err, "record rating")
		return
	}
	s.metrics.IncRatingsSubmitted()

	snap, _, err := s.loadSnapshot(r.Context())
	if err != nil {
		s.respondRepoError(w, err, "record rating")
		return
	}
	s.respondJSON(w, http.StatusCreated, submitRatingResponse{
		Group:        toGroupResponse(result.Group),
		Item:         scoredItem(snap, result.Item),
		Rating:       toRatingResponse(result.Rating),
		CreatedGroup: result.CreatedGroup,
		CreatedItem:  result.CreatedItem,
	})
}

// handleDeleteRating lets a rater remove their own rating, or an admin
// remove any rating.
func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	ratingID, err := pathParam(r, "ratingID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	actor := repository.Actor{
		RaterID: strings.TrimSpace(r.Header.Get("X-Rater-Id")),
		Admin:   s.verifyBearer(r.Header.Get("Authorization")),
	}
	if actor.RaterID == "" && !actor.Admin {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	if err := s.repo.Ratings.Delete(r.Context(), ratingID, actor); err != nil {
		s.respondRepoError(w, err, "delete rating")
		return
	}
	s.metrics.IncRatingsDeleted()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRaterRatings(w http.ResponseWriter, r *http.Request) {
	raterID, err := pathParam(r, "raterID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	limit, err := parseLimit(r.URL.Query(), 10, 100)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ratings, err := s.repo.Ratings.ListByRater(r.Context(), raterID, limit)
	if err != nil {
		s.respondRepoError(w, err, "list ratings")
		return
	}
	stats, err := s.repo.Ratings.StatsByRater(r.Context(), raterID)
	if err != nil {
		s.respondRepoError(w, err, "rater stats")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"items": toRatingResponses(ratings),
		"stats": raterStatsResponse{Ratings: stats.Ratings, Items: stats.Items},
	})
}
