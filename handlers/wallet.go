package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/utils"
)

// GET /api/groups/:id/wallet
func (h *Handler) GetWallet(c *gin.Context) {
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

	contributions, spends, err := h.store.LoadWallet(ctx, groupID)
	if err != nil {
		h.fail(c, err, "Failed to load wallet")
		return
	}
	in := make([]ledger.WalletEntry, len(contributions))
	for i := range contributions {
		in[i] = contributions[i].Entry()
	}
	out := make([]ledger.WalletEntry, len(spends))
	for i := range spends {
		out[i] = spends[i].Entry()
	}

	sum, err := ledger.SummarizeWallet(in, out)
	if err != nil {
		h.fail(c, err, "Failed to summarize wallet")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", models.WalletSummary{
		GroupID:       groupID,
		GroupName:     group.Name,
		WalletEnabled: group.WalletEnabled,
		TotalAdded:    ledger.Round(sum.TotalAdded),
		TotalSpent:    ledger.Round(sum.TotalSpent),
		Remaining:     ledger.Round(sum.Remaining),
	})
}

// POST /api/groups/:id/wallet/contributions
func (h *Handler) AddContribution(c *gin.Context) {
	groupID, ok := h.walletGroup(c)
	if !ok {
		return
	}

	var req models.WalletContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if !checkAmount(c, req.Amount) {
		return
	}

	contribution := models.WalletContribution{
		GroupID: groupID,
		UserID:  utils.GetCurrentUserID(c),
		Amount:  req.Amount,
		Note:    req.Note,
	}
	if err := h.store.AddContribution(c.Request.Context(), &contribution); err != nil {
		h.fail(c, err, "Failed to add contribution")
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Money added to wallet", contribution)
}

// POST /api/groups/:id/wallet/expenses
func (h *Handler) AddWalletExpense(c *gin.Context) {
	groupID, ok := h.walletGroup(c)
	if !ok {
		return
	}

	var req models.WalletExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if !checkAmount(c, req.Amount) {
		return
	}

	spend := models.WalletExpense{
		GroupID: groupID,
		AddedBy: utils.GetCurrentUserID(c),
		Amount:  req.Amount,
		Title:   req.Title,
	}
	if err := h.store.AddWalletExpense(c.Request.Context(), &spend); err != nil {
		h.fail(c, err, "Failed to add wallet expense")
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "Wallet expense added", spend)
}

func (h *Handler) walletGroup(c *gin.Context) (uuid.UUID, bool) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return uuid.Nil, false
	}
	group, err := h.store.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		h.fail(c, err, "Failed to load group")
		return uuid.Nil, false
	}
	if !group.WalletEnabled {
		utils.BadRequest(c, "Wallet is not enabled for this group")
		return uuid.Nil, false
	}
	return groupID, true
}
