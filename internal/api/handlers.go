package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/analysis"
	"github.com/kdimtricp/faik/internal/classifier"
	"github.com/kdimtricp/faik/internal/database"
	"github.com/kdimtricp/faik/internal/detection"
)

const uploadField = "audio_file"

// ModelStatus reports on the process-wide classifier model.
type ModelStatus interface {
	IsLoaded() bool
	Name() string
	Info() *classifier.ModelInfo
}

type App struct {
	Analysis      *analysis.Service
	Model         ModelStatus
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func HomeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "fAIk's backend is running"})
}

func (app *App) ModelStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		ModelLoaded bool    `json:"model_loaded"`
		ModelName   *string `json:"model_name"`
	}{
		ModelLoaded: app.Model.IsLoaded(),
	}
	if status.ModelLoaded {
		name := app.Model.Name()
		status.ModelName = &name
	}

	writeJSON(w, http.StatusOK, status)
}

func (app *App) ModelInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := app.Model.Info()
	if !app.Model.IsLoaded() || info == nil {
		writeError(w, http.StatusServiceUnavailable, "ModelUnavailable", "Model is not loaded", nil)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

type analyzeResponse struct {
	*detection.AnalysisResult
	ModelLoaded bool   `json:"model_loaded"`
	AnalysisID  string `json:"analysis_id,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
}

func (app *App) AnalyzeAudioHandler(w http.ResponseWriter, r *http.Request) {
	params, err := parseParams(r)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	upload, ok := app.readUpload(w, r)
	if !ok {
		return
	}

	outcome, err := app.Analysis.Analyze(r.Context(), upload, params)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisResult: outcome.Result,
		ModelLoaded:    true,
		AnalysisID:     outcome.AnalysisID,
		Cached:         outcome.Cached,
	})
}

func (app *App) DebugAudioHandler(w http.ResponseWriter, r *http.Request) {
	upload, ok := app.readUpload(w, r)
	if !ok {
		return
	}

	report, err := app.Analysis.DebugAudio(r.Context(), upload)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (app *App) ListAnalysesHandler(w http.ResponseWriter, r *http.Request) {
	limit := database.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "ValidationError", "limit must be a positive integer", map[string]any{"limit": v})
			return
		}
		limit = n
	}

	analyses, err := app.Analysis.List(r.Context(), limit)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (app *App) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	record, err := app.Analysis.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (app *App) AnalysisAudioHandler(w http.ResponseWriter, r *http.Request) {
	file, record, err := app.Analysis.OpenAudio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	defer file.Close()

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}

	// Local files support Range requests; object storage bodies are streamed.
	if rs, ok := file.(io.ReadSeeker); ok {
		http.ServeContent(w, r, record.Filename, record.CreatedAt, rs)
		return
	}
	if _, err := io.Copy(w, file); err != nil {
		log.WithError(err).WithField("analysis_id", record.ID).Warn("failed to stream audio")
	}
}

// parseParams reads chunk_duration and overlap from the query string,
// falling back to the defaults when absent.
func parseParams(r *http.Request) (detection.Params, error) {
	params := detection.DefaultParams()
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"chunk_duration", &params.ChunkDuration},
		{"overlap", &params.Overlap},
	} {
		v := query.Get(p.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, errors.Join(detection.ErrInvalidParameter, errors.New(p.name+" must be a number"))
		}
		*p.dst = f
	}

	return params, detection.ValidateParams(params)
}

func (app *App) readUpload(w http.ResponseWriter, r *http.Request) (analysis.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "PayloadTooLarge", "File too large",
				map[string]any{"max_upload_size": app.MaxUploadSize})
			return analysis.Upload{}, false
		}
		writeError(w, http.StatusUnprocessableEntity, "ValidationError", "Expected a multipart form upload",
			map[string]any{"original_error": err.Error()})
		return analysis.Upload{}, false
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "ValidationError", "audio_file is required", nil)
		return analysis.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "UploadError", "Failed to read file", nil)
		return analysis.Upload{}, false
	}

	return analysis.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}
