package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/podforge/podforge/internal/job"
	"github.com/podforge/podforge/internal/models"
	"github.com/podforge/podforge/internal/provider"
	"github.com/podforge/podforge/internal/queue"
	"github.com/podforge/podforge/internal/script"
	"github.com/podforge/podforge/internal/store"
)

type Handler struct {
	manager *job.Manager
	queue   *queue.Queue // nil = start jobs in-process at submission
	store   *store.Store // nil = archive endpoints disabled
	usage   *provider.Usage
}

func NewHandler(m *job.Manager, q *queue.Queue, st *store.Store, usage *provider.Usage) *Handler {
	return &Handler{
		manager: m,
		queue:   q,
		store:   st,
		usage:   usage,
	}
}

// CreateEpisode handles POST /v1/episodes
func (h *Handler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.manager.Create(req)
	if err != nil {
		respondModelError(w, err)
		return
	}

	if h.queue != nil {
		if err := h.queue.EnqueueGenerate(r.Context(), id); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
			return
		}
	} else {
		if err := h.manager.Start(id); err != nil {
			respondModelError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusAccepted, models.CreateEpisodeResponse{
		JobID: id,
		State: models.JobStatePending,
	})
}

// ListEpisodes handles GET /v1/episodes
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.List())
}

// GetEpisode handles GET /v1/episodes/{id}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	status, err := h.manager.Status(id)
	if err != nil {
		respondModelError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// GetScript handles GET /v1/episodes/{id}/script
func (h *Handler) GetScript(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s, err := h.manager.Script(id)
	if err != nil {
		respondModelError(w, err)
		return
	}

	data, err := script.Serialize(s)
	if err != nil {
		respondModelError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetAudio handles GET /v1/episodes/{id}/audio
func (h *Handler) GetAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	data, err := h.manager.Audio(id)
	if err != nil {
		respondModelError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.mp3"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// CancelEpisode handles POST /v1/episodes/{id}/cancel
func (h *Handler) CancelEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Cancel(id); err != nil {
		respondModelError(w, err)
		return
	}

	status, err := h.manager.Status(id)
	if err != nil {
		respondModelError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, status)
}

// DeleteEpisode handles DELETE /v1/episodes/{id}
func (h *Handler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.manager.Purge(id); err != nil {
		respondModelError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetEvents handles GET /v1/episodes/{id}/events
// Query params:
//   - since: return only events with a sequence number greater than this (default 0)
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	since := 0
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "Invalid since parameter")
			return
		}
		since = parsed
	}

	events, err := h.manager.Events(id, since)
	if err != nil {
		respondModelError(w, err)
		return
	}
	if events == nil {
		events = []models.JobEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}

// StreamEvents handles GET /v1/episodes/{id}/events/stream as server-sent
// events. The stream replays the job's history and ends when the job reaches
// a terminal state.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	events, stop, err := h.manager.Subscribe(id)
	if err != nil {
		respondModelError(w, err)
		return
	}
	defer stop()

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.State, data)
			flusher.Flush()
		}
	}
}

// GetUsage handles GET /v1/usage
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	if h.usage == nil {
		respondJSON(w, http.StatusOK, map[string]provider.Counter{})
		return
	}
	respondJSON(w, http.StatusOK, h.usage.Snapshot())
}

// ListArchive handles GET /v1/archive
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusNotFound, "Archive not configured")
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 200 {
		limit = 200
	}

	episodes, err := h.store.ListEpisodes(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list episodes")
		return
	}

	summaries := make([]archiveSummary, 0, len(episodes))
	for _, ep := range episodes {
		summaries = append(summaries, archiveSummary{
			JobID:                ep.JobID,
			Title:                ep.Title,
			Mode:                 ep.Mode,
			TargetDurationSec:    ep.TargetDurationSec,
			EstimatedDurationSec: ep.EstimatedDurationSec,
			CreatedAt:            ep.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetArchivedAudio handles GET /v1/archive/{id}/audio
func (h *Handler) GetArchivedAudio(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusNotFound, "Archive not configured")
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	ep, err := h.store.GetEpisode(r.Context(), id)
	if err != nil {
		respondModelError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.mp3"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(ep.Audio)
}

type archiveSummary struct {
	JobID                uuid.UUID   `json:"job_id"`
	Title                string      `json:"title"`
	Mode                 models.Mode `json:"mode"`
	TargetDurationSec    int         `json:"target_duration_sec"`
	EstimatedDurationSec float64     `json:"estimated_duration_sec"`
	CreatedAt            string      `json:"created_at"`
}

// Helpers

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid episode ID")
		return uuid.Nil, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondModelError maps the engine's error kinds to HTTP statuses and keeps
// the kind and locator visible to callers.
func respondModelError(w http.ResponseWriter, err error) {
	me := models.AsError(err, models.ErrProviderUnavailable)
	status := http.StatusInternalServerError
	switch me.Kind {
	case models.ErrInvalidRequest, models.ErrUnsupportedFormat, models.ErrMalformedScript:
		status = http.StatusBadRequest
	case models.ErrNotFound:
		status = http.StatusNotFound
	case models.ErrProviderUnavailable:
		status = http.StatusBadGateway
	case models.ErrProviderRejected:
		status = http.StatusBadGateway
	}
	respondJSON(w, status, map[string]interface{}{"error": me})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
