package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	availabilityapp "stayride/internal/app/handlers/availability"
	"stayride/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type blockDatesRequest struct {
	From      time.Time `json:"from" binding:"required"`
	To        time.Time `json:"to" binding:"required"`
	Reference string    `json:"reference"`
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := optionalTime(c.Query("from"))
	if err != nil {
		badRequest(c, err)
		return
	}
	to, err := optionalTime(c.Query("to"))
	if err != nil {
		badRequest(c, err)
		return
	}
	query := availabilityapp.GetCalendarQuery{ListingID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Block(c *gin.Context) {
	var req blockDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := availabilityapp.BlockDatesCommand{
		ListingID:       c.Param("id"),
		Actor:           actorFrom(c),
		From:            req.From,
		To:              req.To,
		Reference:       req.Reference,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[availabilityapp.BlockDatesCommand, *dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) Unblock(c *gin.Context) {
	cmd := availabilityapp.UnblockDatesCommand{
		ListingID: c.Param("id"),
		Actor:     actorFrom(c),
		Reference: c.Param("ref"),
	}
	result, err := commands.Dispatch[availabilityapp.UnblockDatesCommand, *dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
