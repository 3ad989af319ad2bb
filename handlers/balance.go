package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/utils"
)

// GET /api/groups/:id/balances
func (h *Handler) GetGroupBalances(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	group, err := h.store.GetGroup(ctx, groupID)
	if err != nil {
		h.fail(c, err, "Failed to load group")
		return
	}

	ov, err := h.settle.Overview(ctx, groupID)
	if err != nil {
		h.fail(c, err, "Failed to compute balances")
		return
	}

	ids := ov.Balances.Participants()
	users, err := h.store.UsersByID(ctx, ids)
	if err != nil {
		h.fail(c, err, "Failed to load members")
		return
	}

	rounded := ov.Balances.Rounded()
	members := make([]models.MemberBalance, len(ids))
	for i, id := range ids {
		u := users[id]
		u.ID = id
		members[i] = models.MemberBalance{UserResponse: u.ToResponse(), Amount: rounded[id]}
	}

	utils.SuccessResponse(c, http.StatusOK, "", models.GroupBalanceSummary{
		GroupID:    groupID,
		GroupName:  group.Name,
		Currency:   h.currency,
		Members:    members,
		Transfers:  ov.Transfers,
		TotalSpent: ledger.Round(ov.TotalSpent),
	})
}
