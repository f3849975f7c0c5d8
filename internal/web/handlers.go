package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conorfennell/wordcards/internal/catalog"
	"github.com/conorfennell/wordcards/internal/domain"
)

// handleListCards searches the collection. All query parameters are optional.
func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := domain.CardFilter{
			Query:      q.Get("q"),
			CategoryID: q.Get("category"),
			Difficulty: domain.Difficulty(q.Get("difficulty")),
		}
		if m := q.Get("mastery"); m != "" {
			level, err := domain.ParseMasteryLevel(m)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			filter.Mastery = level
		}

		cards, err := s.catalog.Search(r.Context(), filter)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) handleCreateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.NewCardInput
		if err := decodeJSON(r, &in); err != nil {
			s.badRequest(w, "invalid request body")
			return
		}
		card, err := s.catalog.Create(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, card)
	}
}

func (s *Server) handleGetCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		card, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleUpdateCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.UpdateCardInput
		if err := decodeJSON(r, &in); err != nil {
			s.badRequest(w, "invalid request body")
			return
		}
		card, err := s.catalog.Update(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handlePostAttempt records one answered review: {"correct": true}.
func (s *Server) handlePostAttempt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Correct *bool `json:"correct"`
		}
		if err := decodeJSON(r, &body); err != nil || body.Correct == nil {
			s.badRequest(w, `request body must be {"correct": true|false}`)
			return
		}
		card, err := s.review.RecordAttempt(r.Context(), chi.URLParam(r, "id"), *body.Correct)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleGetReviews() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := s.catalog.History(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if logs == nil {
			logs = []domain.ReviewLog{}
		}
		s.writeJSON(w, http.StatusOK, logs)
	}
}

// handleGetQueue composes the next study queue. limit defaults to the
// configured size; it must be a positive integer.
func (s *Server) handleGetQueue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.opts.DefaultLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				s.badRequest(w, "limit must be an integer")
				return
			}
			limit = n
		}

		cards, err := s.review.ComposeQueue(r.Context(), limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if cards == nil {
			cards = []domain.Card{}
		}
		s.writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) handleGetStatistics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.catalog.Statistics(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleListCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := s.catalog.Categories(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, categories)
	}
}

func (s *Server) handleCreateCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.NewCategoryInput
		if err := decodeJSON(r, &in); err != nil {
			s.badRequest(w, "invalid request body")
			return
		}
		c, err := s.catalog.CreateCategory(r.Context(), in)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, c)
	}
}
