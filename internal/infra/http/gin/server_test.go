package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayride/internal/app/commands"
	"stayride/internal/app/dto"
	bookingapp "stayride/internal/app/handlers/booking"
	"stayride/internal/app/middleware"
	"stayride/internal/app/queries"
	"stayride/internal/domain/availability"
	"stayride/internal/domain/booking"
	"stayride/internal/domain/shared/rules"
	"stayride/internal/infra/obs"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCommands struct {
	result any
	err    error
	last   commands.Command
}

func (s *stubCommands) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	s.last = cmd
	return s.result, s.err
}

type stubQueries struct {
	result any
	err    error
	last   queries.Query
}

func (s *stubQueries) Ask(ctx context.Context, q queries.Query) (any, error) {
	s.last = q
	return s.result, s.err
}

func newTestRouter(cmds *stubCommands, qs *stubQueries, limit gin.HandlerFunc) *gin.Engine {
	return NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:      BookingHandler{Commands: cmds, Queries: qs},
		Modification: ModificationHandler{Commands: cmds},
		Availability: AvailabilityHandler{Commands: cmds, Queries: qs},
		Quote:        QuoteHandler{Queries: qs},
		RateLimit:    limit,
	})
}

func perform(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

const createBody = `{"listing_id":"lst-1","check_in":"2026-08-01T00:00:00Z","check_out":"2026-08-04T00:00:00Z","guests":2,"voucher_code":"WELCOME10"}`

func TestCreateBooking(t *testing.T) {
	cmds := &stubCommands{result: &dto.Booking{ID: "bk-1", Status: "pending"}}
	r := newTestRouter(cmds, &stubQueries{}, nil)

	w := perform(r, http.MethodPost, "/api/v1/bookings", createBody, map[string]string{
		headerActorID:   "guest-1",
		headerActorRole: " Guest ",
		headerIdemKey:   "idem-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var got dto.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "bk-1", got.ID)

	cmd, ok := cmds.last.(bookingapp.RequestBookingCommand)
	require.True(t, ok)
	assert.Equal(t, commands.Actor{ID: "guest-1", Role: "guest"}, cmd.Actor)
	assert.Equal(t, "idem-1", cmd.IdempotencyKeyV)
	assert.Equal(t, "WELCOME10", cmd.VoucherCode)
	assert.Equal(t, 2, cmd.Guests)
}

func TestCreateBookingRejectsMalformedBody(t *testing.T) {
	cmds := &stubCommands{}
	r := newTestRouter(cmds, &stubQueries{}, nil)

	for _, body := range []string{`{`, `{"listing_id":"lst-1","guests":0}`} {
		w := perform(r, http.MethodPost, "/api/v1/bookings", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "BadRequest", decodeError(t, w).Error)
	}
	assert.Nil(t, cmds.last)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not allowed", err: rules.New(rules.KindNotAllowed, "only the host"), status: http.StatusForbidden, code: "NotAllowed"},
		{name: "date conflict", err: rules.New(rules.KindDateConflict, "taken"), status: http.StatusConflict, code: "DateConflict"},
		{name: "duplicate pending", err: rules.New(rules.KindDuplicatePendingRequest, "pending"), status: http.StatusConflict, code: "DuplicatePendingRequest"},
		{name: "terminal", err: rules.New(rules.KindTerminalBookingState, "cancelled"), status: http.StatusUnprocessableEntity, code: "TerminalBookingState"},
		{name: "invalid message", err: fmt.Errorf("%w: %w", middleware.ErrInvalidMessage, errors.New("booking id required")), status: http.StatusBadRequest, code: "BadRequest"},
		{name: "not found", err: booking.ErrBookingNotFound, status: http.StatusNotFound, code: "NotFound"},
		{name: "concurrent", err: fmt.Errorf("%w: listing lst-1", availability.ErrConcurrentUpdate), status: http.StatusConflict, code: "Conflict"},
		{name: "key reused", err: middleware.ErrKeyReused, status: http.StatusConflict, code: "Conflict"},
		{name: "internal", err: errors.New("mongo: connection refused"), status: http.StatusInternalServerError, code: "Internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubCommands{err: tt.err}, &stubQueries{}, nil)
			w := perform(r, http.MethodPost, "/api/v1/bookings/bk-1/confirm", "", map[string]string{headerActorID: "host-1", headerActorRole: "host"})
			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Error)
			assert.False(t, body.Success)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body.Detail)
			}
		})
	}
}

func TestCancelWithoutBody(t *testing.T) {
	cmds := &stubCommands{result: &bookingapp.CancelBookingResult{}}
	r := newTestRouter(cmds, &stubQueries{}, nil)

	w := perform(r, http.MethodPost, "/api/v1/bookings/bk-1/cancel", "", map[string]string{headerActorID: "guest-1", headerActorRole: "guest"})
	require.Equal(t, http.StatusOK, w.Code)
	cmd, ok := cmds.last.(bookingapp.CancelBookingCommand)
	require.True(t, ok)
	assert.Equal(t, "bk-1", cmd.BookingID)
	assert.Empty(t, cmd.Reason)
}

func TestGetBookingUsesQueryBus(t *testing.T) {
	qs := &stubQueries{result: dto.Booking{ID: "bk-9"}}
	r := newTestRouter(&stubCommands{}, qs, nil)

	w := perform(r, http.MethodGet, "/api/v1/bookings/bk-9", "", map[string]string{headerActorID: "guest-1", headerActorRole: "guest"})
	require.Equal(t, http.StatusOK, w.Code)
	q, ok := qs.last.(bookingapp.GetBookingQuery)
	require.True(t, ok)
	assert.Equal(t, "bk-9", q.BookingID)
}

func TestRateLimitPerActor(t *testing.T) {
	limit, err := NewRateLimiter("2-M", nil)
	require.NoError(t, err)
	r := newTestRouter(&stubCommands{}, &stubQueries{result: dto.Booking{ID: "bk-1"}}, limit)

	alice := map[string]string{headerActorID: "alice", headerActorRole: "guest"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/api/v1/bookings/bk-1", "", alice).Code)
	}
	w := perform(r, http.MethodGet, "/api/v1/bookings/bk-1", "", alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RateLimited", decodeError(t, w).Error)

	bob := map[string]string{headerActorID: "bob", headerActorRole: "guest"}
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/api/v1/bookings/bk-1", "", bob).Code)

	// Health probes sit outside the limited group.
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/livez", "", alice).Code)
}

func TestRateLimiterRejectsBadFormat(t *testing.T) {
	_, err := NewRateLimiter("lots", nil)
	assert.Error(t, err)
}
