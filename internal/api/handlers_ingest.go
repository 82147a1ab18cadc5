package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/medicsearch/rcpgest/internal/parser"
	"github.com/medicsearch/rcpgest/internal/pipeline"
)

// handleIngest queues one document: a multipart "file" upload or a "url"
// form value. force=true ingests even when identical bytes are stored.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		jsonError(w, "invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var job *pipeline.Job
	if r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0 {
		fh := r.MultipartForm.File["file"][0]
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}
		data, status, err := s.readUpload(fh)
		if err != nil {
			jsonError(w, err.Error(), status)
			return
		}
		job = pipeline.NewFileJob(filename, data)
	} else if raw := strings.TrimSpace(r.FormValue("url")); raw != "" {
		if !validURL(raw) {
			jsonError(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}
		job = pipeline.NewURLJob(raw)
	} else {
		jsonError(w, "file or url is required", http.StatusBadRequest)
		return
	}

	job.Title = r.FormValue("title")
	job.Force = r.FormValue("force") == "true"

	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", job.ID),
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleBatchIngest queues every uploaded "files" entry, every "url" value
// and every link of an optional "links" Excel workbook.
func (s *Server) handleBatchIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	force := r.FormValue("force") == "true"
	files := r.MultipartForm.File["files"]
	urls := r.MultipartForm.Value["url"]

	if wb := r.MultipartForm.File["links"]; len(wb) > 0 {
		f, err := wb[0].Open()
		if err != nil {
			jsonError(w, "failed to open links workbook", http.StatusBadRequest)
			return
		}
		links, err := pipeline.ReadLinks(f)
		f.Close()
		if err != nil {
			jsonError(w, "invalid links workbook: "+err.Error(), http.StatusBadRequest)
			return
		}
		urls = append(urls, links...)
	}

	if len(files) == 0 && len(urls) == 0 {
		jsonError(w, "at least one file, url or links workbook is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	submit := func(job *pipeline.Job, entry map[string]any) {
		job.Force = force
		if err := s.orchestrator.Submit(job); err != nil {
			entry["error"] = err.Error()
		} else {
			entry["job_id"] = job.ID
			entry["status"] = job.Status
			entry["poll_url"] = fmt.Sprintf("/api/ingest/%s/status", job.ID)
		}
		results = append(results, entry)
	}

	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)),
			})
			continue
		}
		data, _, err := s.readUpload(fh)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}
		submit(pipeline.NewFileJob(filename, data), map[string]any{"filename": filename})
	}

	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if !validURL(raw) {
			results = append(results, map[string]any{"url": raw, "error": "invalid url"})
			continue
		}
		submit(pipeline.NewURLJob(raw), map[string]any{"url": raw})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

// readUpload reads one multipart file, enforcing MaxUploadBytes. The
// returned status applies when err is non-nil.
func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, int, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, http.StatusInternalServerError, errors.New("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return data, 0, nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
