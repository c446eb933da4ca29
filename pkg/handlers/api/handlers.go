// Package api provides the HTTP handlers for the retrieval API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-fetch-go/pkg/appctx"
	"media-fetch-go/pkg/fetcher"
	"media-fetch-go/pkg/logging"
	"media-fetch-go/pkg/types"
)

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /info", h.handleInfo)
	mux.HandleFunc("POST /download", h.handleDownload)

	if h.ctx.Metrics != nil {
		mux.Handle("GET /metrics", h.ctx.Metrics.Handler())
	}
}

// handleIndex returns a static descriptor of the available routes.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome to the Comprehensive Video Downloader API!",
		"endpoints": map[string]string{
			"/info":     "POST - Get video metadata without downloading.",
			"/download": "POST - Download a video.",
		},
		"docs": "https://github.com/yt-dlp/yt-dlp#usage-and-options",
	})
}

// handleHealth reports server status.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "running",
		"workers": h.ctx.Config.WorkerPoolSize,
	})
}

// handleInfo retrieves metadata for a URL without downloading it.
func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.ctx.Fetcher.Extract(r.Context(), req.URL, req.Options)
	if err != nil {
		h.writeFetchError(w, req.URL, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// handleDownload downloads the media behind a URL.
func (h *Handlers) handleDownload(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.ctx.Fetcher.Download(r.Context(), req.URL, req.Options)
	if err != nil {
		h.writeFetchError(w, req.URL, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Helper methods

func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (*types.RetrievalRequest, bool) {
	var req types.RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return &req, true
}

// writeFetchError maps a gateway failure onto the client-facing taxonomy.
// Unclassified failures are logged in full and surface as a generic 500.
func (h *Handlers) writeFetchError(w http.ResponseWriter, url string, err error) {
	var fe *fetcher.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetcher.KindValidation:
			h.writeDetail(w, http.StatusBadRequest, fe.Message)
		case fetcher.KindDownload:
			h.writeDetail(w, http.StatusBadRequest, "Download error: "+fe.Message)
		case fetcher.KindExtraction:
			h.writeDetail(w, http.StatusBadRequest, "Extractor error (e.g., unsupported URL, video unavailable): "+fe.Message)
		case fetcher.KindStaging:
			h.log.WithURL(url).WithError(err).Error("credential staging failed")
			h.writeDetail(w, http.StatusInternalServerError, "Failed to process cookies.")
		default:
			h.writeDetail(w, http.StatusInternalServerError, "An unexpected server error occurred.")
		}
		return
	}

	h.log.WithURL(url).WithError(err).Error("retrieval failed unexpectedly")
	h.writeDetail(w, http.StatusInternalServerError, "An unexpected server error occurred.")
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeDetail(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, map[string]string{"detail": detail})
}
