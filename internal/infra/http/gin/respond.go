package ginserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayride/internal/app/commands"
	"stayride/internal/app/middleware"
	"stayride/internal/domain/availability"
	"stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	"stayride/internal/domain/modification"
	"stayride/internal/domain/shared/rules"
)

const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
	headerIdemKey   = "Idempotency-Key"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// actorFrom reads the caller identity asserted by the gateway.
func actorFrom(c *gin.Context) commands.Actor {
	return commands.Actor{
		ID:   strings.TrimSpace(c.GetHeader(headerActorID)),
		Role: strings.ToLower(strings.TrimSpace(c.GetHeader(headerActorRole))),
	}
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(headerIdemKey))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "BadRequest", Detail: err.Error()})
}

// writeError maps application errors onto HTTP statuses. Rule violations
// carry their kind as the error code.
func writeError(c *gin.Context, err error) {
	if kind, ok := rules.KindOf(err); ok {
		var v *rules.Violation
		errors.As(err, &v)
		c.JSON(violationStatus(kind), errorBody{Error: string(kind), Detail: v.Detail})
		return
	}
	status, code := errorStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		detail = "internal error"
	}
	c.JSON(status, errorBody{Error: code, Detail: detail})
}

func violationStatus(kind rules.Kind) int {
	switch kind {
	case rules.KindNotAllowed:
		return http.StatusForbidden
	case rules.KindDateConflict, rules.KindDuplicatePendingRequest:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, middleware.ErrInvalidMessage):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, listings.ErrListingNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, modification.ErrRequestNotFound),
		errors.Is(err, availability.ErrRangeNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, availability.ErrConcurrentUpdate),
		errors.Is(err, booking.ErrConcurrentUpdate),
		errors.Is(err, modification.ErrConcurrentUpdate),
		errors.Is(err, availability.ErrDuplicateReference),
		errors.Is(err, middleware.ErrKeyReused):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

// optionalTime parses an RFC 3339 query value; empty yields the zero time.
func optionalTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
