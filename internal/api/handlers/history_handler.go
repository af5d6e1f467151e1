package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davigonia/mr-learning/internal/services"
)

type HistoryHandler struct {
	History services.HistoryService
}

func (h *HistoryHandler) List(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	out, err := h.History.List(c.Request.Context(), householdID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

func (h *HistoryHandler) Clear(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	if err := h.History.Clear(c.Request.Context(), householdID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
