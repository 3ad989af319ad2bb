package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"splitbills-backend/utils"
)

// GET /api/groups/:id/activity
func (h *Handler) GetGroupActivity(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	p := pagination(c)

	activities, err := h.store.ListActivity(c.Request.Context(), groupID, p.Limit, p.Offset())
	if err != nil {
		h.fail(c, err, "Failed to load activity")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", activities)
}
