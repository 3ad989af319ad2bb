package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"splitbills-backend/services"
	"splitbills-backend/utils"
)

// GET /api/upi-link?upi_id=&name=&amount=&note=
func (h *Handler) GetUPILink(c *gin.Context) {
	amount := decimal.Zero
	if raw := c.Query("amount"); raw != "" {
		var err error
		if amount, err = decimal.NewFromString(raw); err != nil {
			utils.BadRequest(c, "Invalid amount")
			return
		}
	}

	link, err := services.UPILink(services.UPIRequest{
		VPA:      c.Query("upi_id"),
		Name:     c.Query("name"),
		Amount:   amount,
		Note:     c.Query("note"),
		Currency: h.currency,
	})
	if errors.Is(err, services.ErrMissingVPA) {
		utils.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.fail(c, err, "Failed to build UPI link")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"upi_link": link})
}
