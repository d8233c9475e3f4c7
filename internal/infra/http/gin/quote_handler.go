package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/dto"
	quotesapp "stayride/internal/app/handlers/quotes"
	"stayride/internal/app/queries"
)

type QuoteHandler struct {
	Queries queries.Bus
}

type quoteRequest struct {
	ListingID   string    `json:"listing_id" binding:"required"`
	CheckIn     time.Time `json:"check_in" binding:"required"`
	CheckOut    time.Time `json:"check_out" binding:"required"`
	Guests      int       `json:"guests" binding:"required,min=1"`
	WithDriver  bool      `json:"with_driver"`
	VoucherCode string    `json:"voucher_code"`
}

func (h QuoteHandler) Quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	query := quotesapp.GetQuoteQuery{
		ListingID:   req.ListingID,
		CheckIn:     req.CheckIn,
		CheckOut:    req.CheckOut,
		Guests:      req.Guests,
		WithDriver:  req.WithDriver,
		VoucherCode: req.VoucherCode,
	}
	result, err := queries.Ask[quotesapp.GetQuoteQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ QuoteHTTP = QuoteHandler{}
