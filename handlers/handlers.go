package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"splitbills-backend/database"
	"splitbills-backend/ledger"
	"splitbills-backend/models"
	"splitbills-backend/services"
	"splitbills-backend/utils"
)

// Store is the persistence the group endpoints need.
type Store interface {
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
	GetGroup(ctx context.Context, groupID uuid.UUID) (models.Group, error)
	UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)

	SavePlan(ctx context.Context, groupID, createdBy uuid.UUID, transfers []ledger.Transfer) ([]models.Settlement, error)
	MarkSettlementPaid(ctx context.Context, groupID, settlementID, actor uuid.UUID) (models.Settlement, error)
	RecordPayment(ctx context.Context, st *models.Settlement) error
	ListSettlements(ctx context.Context, groupID uuid.UUID, status string) ([]models.Settlement, error)

	CreateExpense(ctx context.Context, expense *models.Expense) error
	ListExpenses(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]models.Expense, error)

	AddContribution(ctx context.Context, c *models.WalletContribution) error
	AddWalletExpense(ctx context.Context, e *models.WalletExpense) error
	LoadWallet(ctx context.Context, groupID uuid.UUID) ([]models.WalletContribution, []models.WalletExpense, error)

	ListActivity(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]models.Activity, error)
}

// Settler computes balances and settle-up plans.
type Settler interface {
	Overview(ctx context.Context, groupID uuid.UUID) (services.Overview, error)
	SettleUp(ctx context.Context, groupID uuid.UUID) ([]ledger.Transfer, error)
	Invalidate(ctx context.Context, groupID uuid.UUID)
}

type Handler struct {
	store    Store
	settle   Settler
	notifier services.Notifier
	currency string
}

func New(store Store, settle Settler, notifier services.Notifier, currency string) *Handler {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	return &Handler{store: store, settle: settle, notifier: notifier, currency: currency}
}

// Register mounts the group ledger routes on an authenticated router group.
func (h *Handler) Register(api *gin.RouterGroup) {
	groups := api.Group("/groups/:id")
	{
		groups.GET("/balances", h.GetGroupBalances)
		groups.GET("/settle-up", h.GetSettleUp)
		groups.POST("/settle-up", h.CommitSettleUp)
		groups.GET("/settlements", h.GetGroupSettlements)
		groups.POST("/settlements", h.RecordPayment)
		groups.POST("/settlements/:sid/pay", h.MarkSettlementPaid)

		groups.POST("/expenses", h.CreateExpense)
		groups.GET("/expenses", h.GetGroupExpenses)

		groups.GET("/wallet", h.GetWallet)
		groups.POST("/wallet/contributions", h.AddContribution)
		groups.POST("/wallet/expenses", h.AddWalletExpense)

		groups.GET("/activity", h.GetGroupActivity)
	}
	api.GET("/upi-link", h.GetUPILink)
}

// memberGroup parses :id and checks the caller belongs to the group. It
// writes the error response itself and reports false when the handler
// should stop.
func (h *Handler) memberGroup(c *gin.Context) (uuid.UUID, bool) {
	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid group ID")
		return uuid.Nil, false
	}

	ok, err := h.store.IsMember(c.Request.Context(), groupID, utils.GetCurrentUserID(c))
	if err != nil {
		h.fail(c, err, "Failed to check membership")
		return uuid.Nil, false
	}
	if !ok {
		utils.Forbidden(c, "You are not a member of this group")
		return uuid.Nil, false
	}
	return groupID, true
}

// fail maps ledger and store errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	var integrity *ledger.DataIntegrityError
	switch {
	case errors.As(err, &integrity):
		slog.Error("Ledger data integrity violation", "path", c.FullPath(), "reason", integrity.Reason, "ref", integrity.Ref)
		utils.Conflict(c, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount):
		utils.Unprocessable(c, err.Error())
	case errors.Is(err, ledger.ErrInvalidSplit):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, database.ErrNotFound):
		utils.NotFound(c, "Not found")
	case errors.Is(err, database.ErrAlreadyPaid):
		utils.Conflict(c, "Settlement is already paid")
	default:
		_ = c.Error(err)
		slog.Error(msg, "path", c.FullPath(), "error", err)
		utils.InternalError(c, msg)
	}
}

// checkAmount accepts positive amounts with at most two decimal places.
func checkAmount(c *gin.Context, amount decimal.Decimal) bool {
	switch {
	case amount.IsNegative():
		utils.Unprocessable(c, "Amount must not be negative")
	case amount.IsZero():
		utils.BadRequest(c, "Amount must be greater than 0")
	case !amount.Equal(ledger.Round(amount)):
		utils.BadRequest(c, "Amount must have at most 2 decimal places")
	default:
		return true
	}
	return false
}

// notify runs fn in the background, detached from the request lifetime.
func (h *Handler) notify(c *gin.Context, fn func(ctx context.Context, n services.Notifier) error) {
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := fn(ctx, h.notifier); err != nil {
			slog.Warn("Notification failed", "error", err)
		}
	}()
}

func pagination(c *gin.Context) utils.PaginationQuery {
	var p utils.PaginationQuery
	_ = c.ShouldBindQuery(&p)
	p.Normalize()
	return p
}
