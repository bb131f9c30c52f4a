package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dkovalev/novel-translate-back/internal/chunker"
	"github.com/dkovalev/novel-translate-back/internal/registry"
	"github.com/dkovalev/novel-translate-back/internal/service"
)

type uploadRequest struct {
	Filename     string `json:"filename,omitempty"`
	Text         string `json:"text"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
	SourceLang   string `json:"source_lang,omitempty"`
	TargetLang   string `json:"target_lang,omitempty"`
}

// Upload accepts a document as multipart form data (field "novel_file")
// or as a JSON body, validates it and creates a Queued job.
func (api *API) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes)

	input, err := api.readUpload(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "uploaded file is too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid upload payload")
		return
	}

	job, err := api.service.Submit(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, chunker.ErrEmptyInput):
			writeError(w, r, http.StatusBadRequest, "document is empty")
		case errors.Is(err, service.ErrUnsupportedFormat):
			writeError(w, r, http.StatusBadRequest, "only .txt files are accepted")
		default:
			writeError(w, r, http.StatusInternalServerError, "failed to create translation job")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "file uploaded, translation job created",
		"job_id":         job.ID,
		"total_segments": job.TotalCount,
	})
}

func (api *API) readUpload(r *http.Request) (service.SubmitInput, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("novel_file")
		if err != nil {
			return service.SubmitInput{}, fmt.Errorf("read form file: %w", err)
		}
		defer file.Close()

		text, err := io.ReadAll(file)
		if err != nil {
			return service.SubmitInput{}, fmt.Errorf("read upload: %w", err)
		}
		return service.SubmitInput{
			Filename:     header.Filename,
			Text:         string(text),
			Instructions: r.FormValue("custom_prompt"),
			SourceLang:   r.FormValue("source_lang"),
			TargetLang:   r.FormValue("target_lang"),
		}, nil
	}

	var request uploadRequest
	if err := decodeJSON(r, &request); err != nil {
		return service.SubmitInput{}, err
	}
	return service.SubmitInput{
		Filename:     request.Filename,
		Text:         request.Text,
		Instructions: request.CustomPrompt,
		SourceLang:   request.SourceLang,
		TargetLang:   request.TargetLang,
	}, nil
}

// Translate starts processing for a queued job. Repeating the call on a
// started job is a no-op reporting the current status.
func (api *API) Translate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := pathSuffix(r.URL.Path, "/translate/")
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	job, err := api.service.Start(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "translation job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to start translation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "translation started",
		"status":  job.Status,
	})
}

// CheckProgress is the non-blocking poll endpoint.
func (api *API) CheckProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := pathSuffix(r.URL.Path, "/check_progress/")
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	poll, err := api.service.Poll(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "translation job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to load job")
		return
	}

	response := map[string]any{
		"status":   poll.Status,
		"progress": poll.Progress,
	}
	if poll.Error != "" {
		response["error"] = poll.Error
	}
	writeJSON(w, http.StatusOK, response)
}

// Download streams the reassembled document once the job is Completed.
func (api *API) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := pathSuffix(r.URL.Path, "/download/")
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	result, err := api.service.FetchResult(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "translation job not found")
		case errors.Is(err, service.ErrNotReady):
			writeError(w, r, http.StatusConflict, "translation is not completed yet")
		default:
			writeError(w, r, http.StatusInternalServerError, "failed to fetch result")
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	_, _ = io.WriteString(w, result.Text)
}

// RemoveJob evicts a job; a running job stops dispatching segments and its
// in-flight results are discarded.
func (api *API) RemoveJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := pathSuffix(r.URL.Path, "/jobs/")
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "job_id is required")
		return
	}

	if err := api.service.Remove(r.Context(), jobID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "translation job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to remove job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "job removed",
	})
}

func pathSuffix(path, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(path, prefix))
}
