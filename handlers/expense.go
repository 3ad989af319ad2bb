package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/utils"
)

// POST /api/groups/:id/expenses
func (h *Handler) CreateExpense(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := utils.GetCurrentUserID(c)

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if !checkAmount(c, req.Amount) {
		return
	}

	members, err := h.store.ListMembers(ctx, groupID)
	if err != nil {
		h.fail(c, err, "Failed to load members")
		return
	}
	isMember := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		isMember[m] = true
	}

	paidBy := userID
	if req.PaidBy != "" {
		paidBy, err = uuid.Parse(req.PaidBy)
		if err != nil {
			utils.BadRequest(c, "Invalid paid_by user ID")
			return
		}
		if !isMember[paidBy] {
			utils.BadRequest(c, "Payer is not a member of this group")
			return
		}
	}

	splitType := ledger.SplitType(req.SplitType)
	if splitType == "" {
		splitType = ledger.SplitEqual
	}

	inputs := make([]ledger.ShareInput, len(req.Splits))
	for i, s := range req.Splits {
		id, err := uuid.Parse(s.UserID)
		if err != nil {
			utils.BadRequest(c, "Invalid user ID in splits: "+s.UserID)
			return
		}
		if !isMember[id] {
			utils.BadRequest(c, "Split participant is not a member of this group: "+s.UserID)
			return
		}
		inputs[i] = ledger.ShareInput{ParticipantID: id, Value: s.Value}
	}

	// Equal splits default to every member of the group.
	participants := members
	if splitType == ledger.SplitEqual && len(inputs) > 0 {
		participants = make([]uuid.UUID, len(inputs))
		for i, in := range inputs {
			participants[i] = in.ParticipantID
		}
	}

	shares, err := ledger.BuildShares(splitType, req.Amount, participants, inputs)
	if err != nil {
		h.fail(c, err, "Failed to split expense")
		return
	}

	expenseDate := time.Now().UTC()
	if req.ExpenseDate != "" {
		expenseDate, err = time.Parse("2006-01-02", req.ExpenseDate)
		if err != nil {
			utils.BadRequest(c, "expense_date must be YYYY-MM-DD")
			return
		}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = h.currency
	}

	expense := models.Expense{
		GroupID:     groupID,
		PaidBy:      paidBy,
		Title:       req.Title,
		Amount:      req.Amount,
		Currency:    currency,
		SplitType:   string(splitType),
		Notes:       req.Notes,
		ExpenseDate: expenseDate,
		Splits:      make([]models.ExpenseSplit, len(shares)),
	}
	for i, s := range shares {
		expense.Splits[i] = models.ExpenseSplit{UserID: s.ParticipantID, ShareAmount: s.Amount}
	}

	if err := h.store.CreateExpense(ctx, &expense); err != nil {
		h.fail(c, err, "Failed to create expense")
		return
	}
	h.settle.Invalidate(ctx, groupID)

	utils.SuccessResponse(c, http.StatusCreated, "Expense added", expense.ToResponse())
}

// GET /api/groups/:id/expenses
func (h *Handler) GetGroupExpenses(c *gin.Context) {
	groupID, ok := h.memberGroup(c)
	if !ok {
		return
	}
	p := pagination(c)

	expenses, err := h.store.ListExpenses(c.Request.Context(), groupID, p.Limit, p.Offset())
	if err != nil {
		h.fail(c, err, "Failed to load expenses")
		return
	}

	out := make([]models.ExpenseResponse, len(expenses))
	for i := range expenses {
		out[i] = expenses[i].ToResponse()
	}
	utils.SuccessResponse(c, http.StatusOK, "", out)
}
