package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medicsearch/rcpgest/internal/store"
)

// handleSearch runs a full-text search over section chunks.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	opts := store.SearchOptions{
		Query:      q.Get("q"),
		Substance:  q.Get("substance"),
		Form:       q.Get("forme"),
		Laboratory: q.Get("laboratoire"),
		Limit:      limit,
		Offset:     offset,
	}

	results, err := s.store.Search(r.Context(), opts)
	if errors.Is(err, store.ErrEmptyQuery) {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []*store.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   opts.Query,
		"results": results,
	})
}

// handleFilters returns the cached search filter values.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.filters.Get(r.Context())
	if err != nil {
		jsonError(w, "failed to compute filters: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(opts)
}
