package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	bookingapp "stayride/internal/app/handlers/booking"
	"stayride/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	ListingID     string    `json:"listing_id" binding:"required"`
	CheckIn       time.Time `json:"check_in" binding:"required"`
	CheckOut      time.Time `json:"check_out" binding:"required"`
	Guests        int       `json:"guests" binding:"required,min=1"`
	WithDriver    bool      `json:"with_driver"`
	VoucherCode   string    `json:"voucher_code"`
	PaymentMethod string    `json:"payment_method"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       req.ListingID,
		Actor:           actorFrom(c),
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		WithDriver:      req.WithDriver,
		VoucherCode:     req.VoucherCode,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), Actor: actorFrom(c)}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	cmd := bookingapp.ConfirmBookingCommand{
		BookingID:       c.Param("id"),
		Actor:           actorFrom(c),
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CancellationPreview(c *gin.Context) {
	query := bookingapp.CancellationPreviewQuery{BookingID: c.Param("id"), Actor: actorFrom(c)}
	result, err := queries.Ask[bookingapp.CancellationPreviewQuery, dto.CancellationPreview](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var req cancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:       c.Param("id"),
		Actor:           actorFrom(c),
		Reason:          req.Reason,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *bookingapp.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
