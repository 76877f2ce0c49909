package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pomodoro/collab/internal/middleware"
	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

type recordSessionRequest struct {
	RoomID               string      `json:"roomId"`
	Phase                model.Phase `json:"phase"`
	StartedAt            time.Time   `json:"startedAt"`
	EndedAt              *time.Time  `json:"endedAt"`
	PlannedDuration      int         `json:"plannedDuration"`
	ActualDuration       int         `json:"actualDuration"`
	Completed            bool        `json:"completed"`
	CompletionPercentage int         `json:"completionPercentage"`
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RecordSession(c *gin.Context) {
	var req recordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	session, apiErr := h.analyticsService.Record(c.Request.Context(), middleware.UserID(c), service.RecordSessionInput{
		RoomID:               req.RoomID,
		Phase:                req.Phase,
		StartedAt:            req.StartedAt,
		EndedAt:              req.EndedAt,
		PlannedDuration:      req.PlannedDuration,
		ActualDuration:       req.ActualDuration,
		Completed:            req.Completed,
		CompletionPercentage: req.CompletionPercentage,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

func (h *AnalyticsHandler) Daily(c *gin.Context) {
	days := 0
	if rawDays := c.Query("days"); rawDays != "" {
		if parsed, err := strconv.Atoi(rawDays); err == nil {
			days = parsed
		}
	}

	analytics, apiErr := h.analyticsService.Daily(c.Request.Context(), middleware.UserID(c), days)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": analytics})
}
