package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/disk"

	"mamarr/internal/clients/tracker"
	"mamarr/internal/config"
	"mamarr/internal/models"
	"mamarr/internal/utils"
)

var startTime = time.Now()

type APIHandler struct {
	server *Server
	logger *utils.Logger
	config *config.Config
}

func NewAPIHandler(server *Server, logger *utils.Logger, cfg *config.Config) *APIHandler {
	return &APIHandler{server: server, logger: logger, config: cfg}
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  int(time.Since(startTime).Seconds()),
		"version": runtime.Version(),
	})
}

// GetIndexer describes the single synthetic indexer this service exposes.
func (h *APIHandler) GetIndexer(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, []models.IndexerInfo{{
		ID:      h.config.Tracker.IndexerID,
		Name:    h.config.Tracker.IndexerName,
		Enable:  true,
		Privacy: "private",
	}})
}

func (h *APIHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, tracker.Categories)
}

// Search runs a tracker query and returns Prowlarr-shaped releases.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := params.Get("query")
	if query == "" {
		query = params.Get("q")
	}

	limit, _ := strconv.Atoi(params.Get("limit"))
	offset, _ := strconv.Atoi(params.Get("offset"))

	categories := parseIntList(params["categories"])
	languages := parseIntList(params["lang"])

	releases, err := h.server.Manager().Search(r.Context(), query, limit, offset, categories, languages)
	if err != nil {
		h.logger.Error("Search failed:", err)
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, releases)
}

// parseIntList flattens repeated and comma-joined numeric query parameters.
func parseIntList(values []string) []int {
	var ids []int
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// SubmitDownload accepts Prowlarr's push-release shape and queues a job.
func (h *APIHandler) SubmitDownload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GUID      string `json:"guid"`
		IndexerID int    `json:"indexerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.GUID == "" {
		respondError(w, http.StatusBadRequest, "guid is required")
		return
	}

	job, err := h.server.Manager().SubmitDownload(req.GUID, req.IndexerID)
	if err != nil {
		h.logger.Error("Download submit failed:", err)
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"jobId": job.ID,
		"job":   job,
	})
}

func (h *APIHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.server.Manager().ListJobs())
}

func (h *APIHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, ok := h.server.Manager().GetJob(id)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (h *APIHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.server.Manager().DeleteJob(id) {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateSettings validates, persists and applies runtime overrides. A
// successful write rebuilds the manager so client changes take effect
// without a restart.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var overrides map[string]string
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(overrides) == 0 {
		respondError(w, http.StatusBadRequest, "no settings given")
		return
	}

	// validate against a scratch copy before anything is persisted
	scratch := *h.config
	if err := scratch.ApplyOverrides(overrides); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.server.ApplySettings(overrides); err != nil {
		h.logger.Error("Settings update failed:", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *APIHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.server.Manager().TestConnection(r.Context()); err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"connected": false,
			"provider":  h.server.Manager().ClientName(),
			"error":     err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": true,
		"provider":  h.server.Manager().ClientName(),
	})
}

// GetStatus reports job counts plus disk headroom on the library volume.
func (h *APIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobs := h.server.Manager().ListJobs()
	counts := make(map[models.JobStatus]int)
	for _, job := range jobs {
		counts[job.Status]++
	}

	status := map[string]interface{}{
		"jobs":              counts,
		"total_jobs":        len(jobs),
		"provider":          h.server.Manager().ClientName(),
		"event_subscribers": h.server.hub.ClientCount(),
	}

	if usage, err := disk.Usage(h.config.PostProcess.OutputDir); err == nil {
		status["disk"] = map[string]interface{}{
			"path":         usage.Path,
			"total_bytes":  usage.Total,
			"free_bytes":   usage.Free,
			"used_percent": usage.UsedPercent,
		}
	} else {
		h.logger.Debug("Status: disk usage unavailable:", err)
	}

	respondJSON(w, http.StatusOK, status)
}
