package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/doctree"
	"github.com/medicsearch/rcpgest/internal/render"
	"github.com/medicsearch/rcpgest/internal/store"
)

const maxDocumentBytes = 8 << 20

// handleListMedicines lists stored medicines without their documents.
func (s *Server) handleListMedicines(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := s.store.ListMedicines(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, "failed to list medicines: "+err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := s.store.CountMedicines(r.Context())
	if err != nil {
		jsonError(w, "failed to count medicines: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*store.Summary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"medicines": list,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

func (s *Server) handleGetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMedicine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "failed to load medicine: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		jsonError(w, "medicine not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

// handleMedicineHTML renders the stored document as sanitized HTML.
func (s *Server) handleMedicineHTML(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetMedicine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "failed to load medicine: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if m == nil {
		jsonError(w, "medicine not found", http.StatusNotFound)
		return
	}
	body, err := render.HTML(m.Document)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, body)
}

// handlePutDocument replaces a medicine's document with a corrected one.
// The body must validate against the document JSON Schema.
func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		jsonError(w, "failed to read body: "+err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	doc, err := doctree.Decode(data)
	if err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}

	chunks := chunker.ChunkDocument(doc, s.chunkConfig())
	ok, err := s.store.UpdateDocument(r.Context(), id, doc, chunks)
	if err != nil {
		jsonError(w, "failed to update document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "medicine not found", http.StatusNotFound)
		return
	}
	s.log.Info("document replaced", "medicine_id", id, "sections", doc.SectionCount(), "chunks", len(chunks))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":       id,
		"sections": doc.SectionCount(),
		"chunks":   len(chunks),
	})
}

// handleDeleteMedicine deletes a medicine and its search chunks.
func (s *Server) handleDeleteMedicine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := s.store.DeleteMedicine(r.Context(), id)
	if err != nil {
		jsonError(w, "failed to delete medicine: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "medicine not found", http.StatusNotFound)
		return
	}
	s.filters.Invalidate()
	s.log.Info("medicine deleted", "medicine_id", id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": id})
}

// pageParams reads limit (1..200, default 50) and offset (>= 0).
func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = min(n, 200)
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}
