package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-multiloader/internal/download"
	"github.com/ytget/yt-multiloader/internal/model"
	"github.com/ytget/yt-multiloader/internal/validate"
)

// AddItemsRequest adds rows by URL and/or expands a playlist
type AddItemsRequest struct {
	URLs     []string `json:"urls" validate:"dive,video_url"`
	Playlist string   `json:"playlist" validate:"omitempty,url"`
	Start    bool     `json:"start"`
}

// SetURLRequest replaces the URL of a row. Invalid URLs are accepted and
// reported through the item's "invalid" field.
type SetURLRequest struct {
	URL *string `json:"url" validate:"required"`
}

// StateResponse summarises the engine for front-ends
type StateResponse struct {
	Count          int  `json:"count"`
	HasStartable   bool `json:"has_startable"`
	AnyDownloading bool `json:"any_downloading"`
}

// Handler serves the item API
type Handler struct {
	svc    download.Downloader
	hub    *Hub
	logger logrus.FieldLogger
}

// NewHandler creates a Handler. Events are read from hub, which must be fed
// from svc.Events().
func NewHandler(svc download.Downloader, hub *Hub, logger logrus.FieldLogger) *Handler {
	return &Handler{
		svc:    svc,
		hub:    hub,
		logger: logger.WithField("component", "api"),
	}
}

// ListItems handles GET /items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Items())
}

// GetItem handles GET /items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, download.ErrItemNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// AddItems handles POST /items
func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req AddItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 && req.Playlist == "" {
		writeError(w, http.StatusBadRequest, "urls or playlist required")
		return
	}
	if err := validate.Struct(req); err != nil {
		h.logger.WithError(err).Warn("validation failed")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids := h.svc.AddURLs(req.URLs...)
	if req.Playlist != "" {
		more, err := h.svc.AddPlaylist(r.Context(), req.Playlist)
		if err != nil {
			h.logger.WithError(err).WithField("playlist", req.Playlist).Error("failed to add playlist")
			writeError(w, http.StatusBadGateway, fmt.Sprintf("playlist: %v", err))
			return
		}
		ids = append(ids, more...)
	}

	started := 0
	if req.Start {
		started = h.svc.StartEligible()
	}

	h.logger.WithFields(logrus.Fields{"items": len(ids), "started": started}).Info("items added")

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ids":     ids,
		"started": started,
	})
}

// SetURL handles PUT /items/{id}/url
func (h *Handler) SetURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.SetURL(id, *req.URL); err != nil {
		writeServiceError(w, err)
		return
	}
	item, _ := h.svc.Get(id)
	writeJSON(w, http.StatusOK, item)
}

// CancelItem handles POST /items/{id}/cancel
func (h *Handler) CancelItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Cancel(id); err != nil {
		writeServiceError(w, err)
		return
	}
	item, _ := h.svc.Get(id)
	writeJSON(w, http.StatusOK, item)
}

// RemoveItem handles DELETE /items/{id}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start handles POST /start
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	started := h.svc.StartEligible()
	writeJSON(w, http.StatusOK, map[string]int{"started": started})
}

// State handles GET /state
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{
		Count:          h.svc.Count(),
		HasStartable:   h.svc.HasStartable(),
		AnyDownloading: h.svc.AnyDownloading(),
	})
}

// Events handles GET /events as a server-sent event stream. Each message is
// named after the event kind and carries the JSON encoded model.Event.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				h.logger.WithError(err).Debug("event stream closed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, download.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, download.ErrItemBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
