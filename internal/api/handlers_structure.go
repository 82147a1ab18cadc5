package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/medicsearch/rcpgest/internal/builder"
	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/smpc"
	"github.com/medicsearch/rcpgest/internal/structure"
)

// structureResponse is the synchronous structuring result. Nothing is stored.
type structureResponse struct {
	Title    string         `json:"title"`
	Format   string         `json:"format"`
	Metadata *smpc.Metadata `json:"metadata,omitempty"`
	structure.Result
}

// handleStructure structures an uploaded file and returns the document.
// Optional form fields: start and stop anchor names override the profile
// window; whole=true structures the entire stream.
func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	src, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.metrics.ObserveStructure(parser.FormatOf(filename), metrics.OutcomeFailed, 0)
		jsonError(w, "parse failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	engine := *s.engine
	if a := r.FormValue("start"); a != "" {
		engine.Start = builder.Anchor(a)
	}
	if a := r.FormValue("stop"); a != "" {
		engine.Stop = builder.Anchor(a)
	}
	if r.FormValue("whole") == "true" {
		engine.Start = nil
	}

	res := engine.Structure(src)
	outcome := metrics.OutcomeWindowed
	if !res.Windowed {
		outcome = metrics.OutcomeEmpty
		if res.Document.SectionCount() > 0 {
			outcome = metrics.OutcomeWhole
		}
	}
	s.metrics.ObserveStructure(src.Format, outcome, res.Duration)
	s.metrics.AddSections(res.Document.SectionCount())
	s.metrics.AddDuplicatesDropped(res.Stats.Duplicates)

	resp := structureResponse{Title: src.Title, Format: src.Format, Result: res}
	if src.HTML != nil {
		md := smpc.ExtractMetadata(src.HTML)
		resp.Metadata = &md
		resp.Title = md.Title
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
