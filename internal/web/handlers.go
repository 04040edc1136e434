package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rthomann/docmill/internal/export"
	"github.com/rthomann/docmill/internal/format"
	"github.com/rthomann/docmill/internal/pipeline"
	"github.com/rthomann/docmill/internal/source"
	"github.com/rthomann/docmill/internal/vlm"
)

// handleConvert accepts an uploaded file or a source URL and queues an
// asynchronous conversion job.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	// Limit total request size, extra 1MB for form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxInputBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := optionsFromForm(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var job *pipeline.Job
	if url := strings.TrimSpace(r.FormValue("url")); url != "" {
		if !source.IsURL(url) {
			jsonError(w, fmt.Sprintf("not a fetchable URL: %s", url), http.StatusBadRequest)
			return
		}
		job, err = s.orchestrator.Submit(url, nil, opts)
	} else {
		var name string
		var data []byte
		name, data, err = s.readUpload(r)
		if err == nil {
			job, err = s.orchestrator.Submit(name, data, opts)
		}
	}
	if err != nil {
		code := http.StatusBadRequest
		if strings.Contains(err.Error(), "queue is full") {
			code = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"status":     job.Status,
		"poll_url":   fmt.Sprintf("/api/jobs/%s", job.ID),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", job.ID),
	})
}

func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("file or url is required: %w", err)
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if f := format.FromFilename(filename); f == format.Unknown {
		return "", nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxInputBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxInputBytes {
		return "", nil, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxInputBytes)
	}
	return filename, data, nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleJobResult renders a completed job's document in the requested
// format. The same job can be fetched in several formats.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	switch snap.Status {
	case pipeline.StatusCompleted, pipeline.StatusPartial:
	case pipeline.StatusFailed:
		jsonError(w, "job failed: "+strings.Join(snap.Errors, "; "), http.StatusConflict)
		return
	default:
		jsonError(w, fmt.Sprintf("job not finished (status %s)", snap.Status), http.StatusConflict)
		return
	}

	// Default to the format the job was submitted with.
	raw := r.URL.Query().Get("format")
	target := job.Options.Target
	if raw != "" {
		var err error
		target, err = export.ParseTarget(raw)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// Referenced images make no sense over HTTP; embed instead.
	mode := job.Options.ImageMode
	if mode == export.ImageReferenced {
		mode = export.ImageEmbedded
	}

	out, err := export.Export(job.Document(), target, export.MarkdownOptions{ImageMode: mode})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(target))
	w.Write([]byte(out))
}

// handleVLMStats reports latency and token aggregates for the vision model,
// across all jobs this server has run.
func (s *Server) handleVLMStats(w http.ResponseWriter, r *http.Request) {
	stats := s.orchestrator.VLMStats()
	if stats == nil {
		jsonError(w, "vlm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	model := s.cfg.VLMModel
	if model == "" {
		model = vlm.DefaultModel
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"model": model,
		"stats": stats.Snapshot(),
	})
}

func contentTypeFor(target export.Target) string {
	switch target {
	case export.TargetHTML:
		return "text/html; charset=utf-8"
	case export.TargetJSON:
		return "application/json"
	case export.TargetText:
		return "text/plain; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// optionsFromForm maps form fields onto conversion options. Unset fields
// fall back to server config inside the pipeline.
func optionsFromForm(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{
		Target:                export.Target(r.FormValue("to")),
		ImageMode:             export.ImageMode(r.FormValue("image_mode")),
		Pipeline:              pipeline.PipelineKind(r.FormValue("pipeline")),
		OCREngine:             r.FormValue("ocr_engine"),
		NoOCR:                 r.FormValue("no_ocr") == "true",
		ForceFullPageOCR:      r.FormValue("force_full_page_ocr") == "true",
		VLMModel:              r.FormValue("vlm_model"),
		PictureDescription:    r.FormValue("enrich_picture_description") == "true",
		PictureClassification: r.FormValue("enrich_picture_classes") == "true",
		CodeEnrichment:        r.FormValue("enrich_code") == "true",
		FormulaEnrichment:     r.FormValue("enrich_formula") == "true",
	}
	if langs := r.FormValue("ocr_lang"); langs != "" {
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				opts.OCRLanguages = append(opts.OCRLanguages, l)
			}
		}
	}
	if err := opts.Normalize(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
