// Package api exposes the digest pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/envstore"
	"DailyDigest/internal/ports"
	"DailyDigest/internal/usecase"
)

// Secrets is the runtime-editable credential store.
type Secrets interface {
	ports.Credentials
	Display() envstore.Display
	Validate() envstore.Status
	Save(req envstore.SecretsUpdate) (int, error)
}

// Settings are the static feature flags reported by GET /api/config.
type Settings struct {
	CacheEnabled bool
	ImageEnabled bool
	Location     *time.Location
}

// HandlerDeps collects what the HTTP boundary talks to.
type HandlerDeps struct {
	Runner       *usecase.Runner
	Pipeline     *usecase.Pipeline
	Store        ports.ArtifactStore
	Secrets      Secrets
	Settings     Settings
	Logger       *slog.Logger
	PollInterval time.Duration
}

// Handler serves every /api route.
type Handler struct {
	runner   *usecase.Runner
	pipeline *usecase.Pipeline
	store    ports.ArtifactStore
	secrets  Secrets
	settings Settings
	validate *validator.Validate
	logger   *slog.Logger
	poll     time.Duration
}

// NewHandler builds the handler set.
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		runner:   deps.Runner,
		pipeline: deps.Pipeline,
		store:    deps.Store,
		secrets:  deps.Secrets,
		settings: deps.Settings,
		validate: validator.New(),
		logger:   deps.Logger,
		poll:     deps.PollInterval,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.settings.Location == nil {
		h.settings.Location = time.Local
	}
	if h.poll <= 0 {
		h.poll = time.Second
	}
	return h
}

func (h *Handler) day(value string) (time.Time, error) {
	return domain.ParseDay(value, h.settings.Location)
}

// Config reports which integrations are usable.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"deepseek_configured": h.secrets.DeepSeekAPIKey() != "",
		"webhook_configured":  h.secrets.WebhookURL() != "",
		"cache_enabled":       h.settings.CacheEnabled,
		"image_enabled":       h.settings.ImageEnabled,
	})
}

// ConfigDetails returns the masked secrets with their validation status.
func (h *Handler) ConfigDetails(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"config":  h.secrets.Display(),
		"status":  h.secrets.Validate(),
	})
}

// SaveConfig stores the secrets that were actually edited.
func (h *Handler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var req configSaveRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DeepSeekAPIKey == nil && req.WebhookURL == nil {
		respondError(w, http.StatusBadRequest, "missing configuration data")
		return
	}

	n, err := h.secrets.Save(envstore.SecretsUpdate{DeepSeekAPIKey: req.DeepSeekAPIKey, WebhookURL: req.WebhookURL})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("configuration saved", "updated", n)
	respondJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: fmt.Sprintf("configuration saved, %d item(s) updated", n),
	})
}

// TestConnections checks every collaborator as a tracked job and waits for it.
func (h *Handler) TestConnections(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.runner.Run(r.Context(), h.pipeline.ConnectivityJob())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, _ := outcome.Result.(domain.ConnectivityResult)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"results": result.Results,
	})
}

// Crawl starts a background scrape.
func (h *Handler) Crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	task, err := h.runner.Start(h.pipeline.CrawlJob(day, req.Sources))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Success: true, Message: "crawl started", RunID: task.ID})
}

// Pipeline starts the full daily run in the background.
func (h *Handler) Pipeline(w http.ResponseWriter, r *http.Request) {
	var req pipelineRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	useAI := true
	if req.UseAI != nil {
		useAI = *req.UseAI
	}

	task, err := h.runner.Start(h.pipeline.DailyJob(usecase.DailyRequest{
		Day:     day,
		Sources: req.Sources,
		UseAI:   useAI,
		Publish: req.Publish,
	}))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Success: true, Message: "daily pipeline started", RunID: task.ID})
}

// Progress returns the current job snapshot.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.runner.Snapshot())
}

// ProgressStream pushes snapshots as server-sent events until the job stops running.
func (h *Handler) ProgressStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(h.poll)
	defer ticker.Stop()

	for {
		snap := h.runner.Snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			h.logger.Error("encode progress snapshot", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()

		if snap.Status != domain.JobRunning {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// GenerateReport summarizes the supplied or cached articles and waits for the result.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key := domain.DayKey(day)

	articles, err := h.pipeline.ResolveArticles(key, req.Articles)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	outcome, err := h.runner.Run(r.Context(), h.pipeline.ReportJob(key, articles))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, _ := outcome.Result.(domain.ReportResult)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  result.Report,
		"files":   result.Files,
	})
}

// SendReport delivers the text digest.
func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.pipeline.SendReport(r.Context(), domain.DayKey(day), req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SaveReport overwrites the stored report with edited content.
func (h *Handler) SaveReport(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	key := domain.DayKey(day)

	files, err := h.pipeline.SaveEdited(key, req.Content)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("edited report saved", "date", key)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "report saved",
		"files":   files,
	})
}

// GeneratePoster renders the poster and waits for it.
func (h *Handler) GeneratePoster(w http.ResponseWriter, r *http.Request) {
	var req posterRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.fail(w, r, domain.ErrEmptyContent)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	outcome, err := h.runner.Run(r.Context(), h.pipeline.PosterJob(usecase.PosterRequest{
		Day:        domain.DayKey(day),
		Content:    req.Content,
		CustomHTML: req.HTML,
		UseAI:      req.UseAI,
	}))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, _ := outcome.Result.(domain.PosterResult)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"date":        result.Poster.Date,
		"path":        result.Poster.Path,
		"image_path":  result.Poster.Path,
		"html_source": result.Poster.TemplateSource,
	})
}

// SendPoster delivers an already rendered poster image.
func (h *Handler) SendPoster(w http.ResponseWriter, r *http.Request) {
	var req sendPosterRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.day(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.pipeline.SendPoster(r.Context(), domain.DayKey(day), req.ImagePath)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListFiles enumerates the stored artifacts.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	listing, err := h.store.List()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// File downloads one artifact by name.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	path, err := h.store.Locate(chi.URLParam(r, "filename"))
	if errors.Is(err, domain.ErrArtifactNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}
