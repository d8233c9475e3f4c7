package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	modificationapp "stayride/internal/app/handlers/modification"
)

type ModificationHandler struct {
	Commands commands.Bus
}

type proposeModificationRequest struct {
	CheckIn  time.Time `json:"check_in" binding:"required"`
	CheckOut time.Time `json:"check_out" binding:"required"`
	Guests   int       `json:"guests" binding:"required,min=1"`
	Message  string    `json:"message"`
}

type respondRequest struct {
	Message string `json:"message"`
}

// Propose answers 200 when a pending booking was changed in place and 202
// when a request now awaits the host.
func (h ModificationHandler) Propose(c *gin.Context) {
	var req proposeModificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := modificationapp.ProposeModificationCommand{
		BookingID:       c.Param("id"),
		Actor:           actorFrom(c),
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		Message:         req.Message,
		IdempotencyKeyV: idempotencyKey(c),
	}
	result, err := commands.Dispatch[modificationapp.ProposeModificationCommand, *dto.ModificationOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusAccepted
	if result != nil && result.Applied {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func (h ModificationHandler) Approve(c *gin.Context) {
	h.respond(c, modificationapp.ApproveCommand)
}

func (h ModificationHandler) Reject(c *gin.Context) {
	h.respond(c, modificationapp.RejectCommand)
}

func (h ModificationHandler) Withdraw(c *gin.Context) {
	h.respond(c, modificationapp.WithdrawCommand)
}

func (h ModificationHandler) respond(c *gin.Context, action func(modificationapp.RespondCommand) modificationapp.RespondCommand) {
	var req respondRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	cmd := action(modificationapp.RespondCommand{
		RequestID:       c.Param("id"),
		Actor:           actorFrom(c),
		Message:         req.Message,
		IdempotencyKeyV: idempotencyKey(c),
	})
	result, err := commands.Dispatch[modificationapp.RespondCommand, *dto.ModificationOutcome](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ModificationHTTP = ModificationHandler{}
