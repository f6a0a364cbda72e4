package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/luowst/fanarchive/app/cfg"
	"github.com/luowst/fanarchive/app/database"
	"github.com/luowst/fanarchive/app/settings"
	"github.com/luowst/fanarchive/app/tasks"
)

func NewHandler(runner tasks.TaskRunnerInterface, repo database.HistoryRepository, store *settings.Store) *Handler {
	return &Handler{runner: runner, repo: repo, store: store}
}

func (h *Handler) StartTask(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"accepted": false, "message": "invalid request body"})
		return
	}

	kind, err := tasks.ParseKind(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"accepted": false, "message": err.Error()})
		return
	}

	if err := h.runner.Start(kind, req.Params); err != nil {
		if errors.Is(err, tasks.ErrTaskRunning) {
			c.JSON(http.StatusConflict, gin.H{"accepted": false, "message": "a task is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"accepted": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true, "message": "task started"})
}

func (h *Handler) GetTaskStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runner.Status())
}

func (h *Handler) StopTask(c *gin.Context) {
	h.runner.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "stop requested"})
}

func (h *Handler) ListHistory(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	filter := database.HistoryFilter{
		Type:   c.Query("type"),
		Source: c.Query("source"),
		Search: c.Query("search"),
	}

	entries, total, stats, err := h.repo.List(page, perPage, filter)
	if err != nil {
		slog.Error("Database error", "operation", "list_history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    entries,
		"total":    total,
		"stats":    stats,
		"page":     page,
		"per_page": perPage,
	})
}

func (h *Handler) CheckDownloaded(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	downloaded, err := h.repo.IsDownloaded(req.URL)
	if err != nil {
		slog.Error("Database error", "operation", "check_downloaded", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloaded": downloaded, "url": req.URL})
}

func (h *Handler) DeleteHistoryItem(c *gin.Context) {
	if err := h.repo.Delete(c.Param("id")); err != nil {
		slog.Error("Database error", "operation", "delete_history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.repo.Clear(); err != nil {
		slog.Error("Database error", "operation", "clear_history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSettings returns the settings document. The credential token is
// never echoed back; has_credential tells the client whether one is
// set.
func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.store.Load()
	if err != nil {
		slog.Error("Settings error", "operation", "load", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credential_key":     s.CredentialKey,
		"has_credential":     s.HasCredential(),
		"save_path":          s.SavePath,
		"auto_dedup":         s.AutoDedup,
		"notify_on_complete": s.NotifyOnComplete,
	})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body"})
		return
	}

	s, err := h.store.Load()
	if err != nil {
		slog.Error("Settings error", "operation", "load", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to load settings"})
		return
	}

	applySettings(&s, req)

	if err := h.store.Save(s); err != nil {
		slog.Error("Settings error", "operation", "save", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "settings saved"})
}

func applySettings(s *settings.Settings, req settingsRequest) {
	if req.CredentialKey != nil {
		s.CredentialKey = *req.CredentialKey
	}
	if req.CredentialToken != nil {
		s.CredentialToken = *req.CredentialToken
	}
	if req.SavePath != nil {
		s.SavePath = *req.SavePath
	}
	if req.AutoDedup != nil {
		s.AutoDedup = *req.AutoDedup
	}
	if req.NotifyOnComplete != nil {
		s.NotifyOnComplete = *req.NotifyOnComplete
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if _, err := h.repo.Stats(); err != nil {
		health["status"] = "degraded"
		health["database"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}
