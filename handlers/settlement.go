package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/services"
	"splitbills-backend/utils"
)

// GET /api/groups/:id/settle-up
// Responds with the bare transfer array.
func (h *Handler) GetSettleUp(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	transfers, err := h.settle.SettleUp(c.Request.Context(), groupID)
	if err != nil {
		h.fail(c, err, "Failed to compute settle-up plan")
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// POST /api/groups/:id/settle-up
// Stores a freshly computed plan as PENDING settlements.
func (h *Handler) CommitSettleUp(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := utils.GetCurrentUserID(c)

	h.settle.Invalidate(ctx, groupID)
	transfers, err := h.settle.SettleUp(ctx, groupID)
	if err != nil {
		h.fail(c, err, "Failed to compute settle-up plan")
		return
	}

	settlements, err := h.store.SavePlan(ctx, groupID, userID, transfers)
	if err != nil {
		h.fail(c, err, "Failed to save settle-up plan")
		return
	}

	if len(transfers) > 0 {
		group, users, err := h.noticeContext(ctx, groupID, transfers)
		if err == nil {
			h.notify(c, func(ctx context.Context, n services.Notifier) error {
				return n.PlanReady(ctx, services.PlanNotice{
					GroupID:   groupID,
					GroupName: group.Name,
					Currency:  h.currency,
					Transfers: transfers,
					Users:     users,
				})
			})
		}
	}

	utils.SuccessResponse(c, http.StatusCreated, "Settle-up plan saved", settlements)
}

// GET /api/groups/:id/settlements?status=PENDING|PAID
func (h *Handler) GetGroupSettlements(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}

	status := c.Query("status")
	if status != "" && !ledger.SettlementStatus(status).Valid() {
		utils.BadRequest(c, "status must be PENDING or PAID")
		return
	}

	settlements, err := h.store.ListSettlements(c.Request.Context(), groupID, status)
	if err != nil {
		h.fail(c, err, "Failed to load settlements")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", settlements)
}

// POST /api/groups/:id/settlements
// Records a payment the caller already made.
func (h *Handler) RecordPayment(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := utils.GetCurrentUserID(c)

	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	toUser, err := uuid.Parse(req.ToUser)
	if err != nil {
		utils.BadRequest(c, "Invalid to_user ID")
		return
	}
	if toUser == userID {
		utils.BadRequest(c, "You cannot pay yourself")
		return
	}
	if !checkAmount(c, req.Amount) {
		return
	}
	member, err := h.store.IsMember(ctx, groupID, toUser)
	if err != nil {
		h.fail(c, err, "Failed to check membership")
		return
	}
	if !member {
		utils.BadRequest(c, "Recipient is not a member of this group")
		return
	}

	settlement := models.Settlement{
		GroupID:   groupID,
		FromUser:  userID,
		ToUser:    toUser,
		Amount:    req.Amount,
		Notes:     req.Notes,
		CreatedBy: userID,
	}
	if err := h.store.RecordPayment(ctx, &settlement); err != nil {
		h.fail(c, err, "Failed to record payment")
		return
	}
	h.settle.Invalidate(ctx, groupID)
	h.notifyPaid(c, settlement)

	utils.SuccessResponse(c, http.StatusCreated, "Payment recorded", settlement)
}

// POST /api/groups/:id/settlements/:sid/pay
func (h *Handler) MarkSettlementPaid(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	settlementID, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		utils.BadRequest(c, "Invalid settlement ID")
		return
	}
	ctx := c.Request.Context()

	settlement, err := h.store.MarkSettlementPaid(ctx, groupID, settlementID, utils.GetCurrentUserID(c))
	if err != nil {
		h.fail(c, err, "Failed to mark settlement paid")
		return
	}
	h.settle.Invalidate(ctx, groupID)
	h.notifyPaid(c, settlement)

	utils.SuccessResponse(c, http.StatusOK, "Settlement marked paid", settlement)
}

func (h *Handler) notifyPaid(c *gin.Context, st models.Settlement) {
	group, users, err := h.noticeContext(c.Request.Context(), st.GroupID, []ledger.Transfer{{FromID: st.FromUser, ToID: st.ToUser}})
	if err != nil {
		return
	}
	notice := services.SettlementNotice{
		GroupID:   st.GroupID,
		GroupName: group.Name,
		Currency:  h.currency,
		Payer:     users[st.FromUser],
		Payee:     users[st.ToUser],
		Amount:    st.Amount,
	}
	h.notify(c, func(ctx context.Context, n services.Notifier) error {
		return n.SettlementPaid(ctx, notice)
	})
}

// noticeContext loads the group and every user named in transfers. A failure
// only skips the notification.
func (h *Handler) noticeContext(ctx context.Context, groupID uuid.UUID, transfers []ledger.Transfer) (group models.Group, users map[uuid.UUID]models.User, err error) {
	defer func() {
		if err != nil {
			slog.Warn("Skipping notification", "group_id", groupID, "error", err)
		}
	}()

	group, err = h.store.GetGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, nil, err
	}
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, t := range transfers {
		for _, id := range []uuid.UUID{t.FromID, t.ToID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	users, err = h.store.UsersByID(ctx, ids)
	if err != nil {
		return models.Group{}, nil, err
	}
	return group, users, nil
}
