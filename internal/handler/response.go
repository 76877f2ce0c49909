package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pomodoro/collab/internal/errors"
	"pomodoro/collab/internal/middleware"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}

	if apiErr.Status >= http.StatusInternalServerError {
		middleware.RequestLogger(c).Error().
			Err(apiErr.Cause).
			Str("code", apiErr.Code).
			Msg(apiErr.Message)
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func writeInvalidJSON(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{
			"code":    "invalid_json",
			"message": "invalid request body",
		},
	})
}
