package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pomodoro/collab/internal/middleware"
	"pomodoro/collab/internal/model"
	"pomodoro/collab/internal/service"
)

type RoomHandler struct {
	roomService *service.RoomService
}

type createRoomRequest struct {
	HostID              string                     `json:"hostId"`
	HostName            string                     `json:"hostName"`
	Name                string                     `json:"name"`
	Settings            *model.SettingsPatch       `json:"settings"`
	InheritedTimerState *model.InheritedTimerState `json:"inheritedTimerState"`
}

type roomActionRequest struct {
	Action      string `json:"action"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	BaseVersion int    `json:"baseVersion"`
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

func (h *RoomHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.roomService.List(c.Request.Context()))
}

func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	hostID, hostName := identity(c, req.HostID, req.HostName)
	created, apiErr := h.roomService.Create(c.Request.Context(), service.CreateRoomInput{
		HostID:    hostID,
		HostName:  hostName,
		Name:      req.Name,
		Settings:  req.Settings,
		Inherited: req.InheritedTimerState,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *RoomHandler) Get(c *gin.Context) {
	got, apiErr := h.roomService.Get(c.Request.Context(), c.Param("roomId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (h *RoomHandler) Act(c *gin.Context) {
	var req roomActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	userID, userName := identity(c, req.UserID, req.UserName)
	result, apiErr := h.roomService.Act(c.Request.Context(), c.Param("roomId"), service.ActionInput{
		Action:      service.Action(req.Action),
		UserID:      userID,
		UserName:    userName,
		BaseVersion: req.BaseVersion,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	if result.Room == nil {
		c.JSON(http.StatusOK, gin.H{"success": result.Success})
		return
	}
	c.JSON(http.StatusOK, result.Room)
}

// identity prefers the bearer token's subject over ids sent in the body.
func identity(c *gin.Context, bodyID, bodyName string) (string, string) {
	if userID := middleware.UserID(c); userID != "" {
		name := middleware.UserName(c)
		if name == "" {
			name = bodyName
		}
		return userID, name
	}
	return bodyID, bodyName
}
