package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonbook/backend/internal/service/accounts"
	"salonbook/backend/internal/service/appointments"
	"salonbook/backend/internal/service/catalog"
)

type apiError struct {
	status  int
	message string
}

var knownErrors = []struct {
	err error
	apiError
}{
	{appointments.ErrNotFound, apiError{http.StatusNotFound, "Appointment not found"}},
	{appointments.ErrUnauthorized, apiError{http.StatusForbidden, "Unauthorized"}},
	{appointments.ErrSlotUnavailable, apiError{http.StatusBadRequest, "Time slot unavailable"}},
	{appointments.ErrInvalidReference, apiError{http.StatusBadRequest, "Invalid service"}},
	{appointments.ErrAlreadyCancelled, apiError{http.StatusConflict, "Appointment already cancelled"}},
	{appointments.ErrIdempotencyConflict, apiError{http.StatusConflict, "Idempotency key already used for a different appointment"}},
	{accounts.ErrDuplicateIdentity, apiError{http.StatusBadRequest, "User already exists"}},
	{accounts.ErrInvalidCredentials, apiError{http.StatusUnauthorized, "Invalid credentials"}},
	{accounts.ErrForbidden, apiError{http.StatusForbidden, "Admin access required"}},
	{catalog.ErrForbidden, apiError{http.StatusForbidden, "Admin access required"}},
	{catalog.ErrNotFound, apiError{http.StatusNotFound, "Service not found"}},
	{catalog.ErrInUse, apiError{http.StatusConflict, "Service has appointments"}},
}

func (h *handler) fail(c *gin.Context, op string, err error) {
	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			h.log.Info(op+" rejected", slog.String("reason", err.Error()))
			c.JSON(k.status, gin.H{"message": k.message})
			return
		}
	}

	var (
		apptErr    *appointments.ValidationError
		accountErr *accounts.ValidationError
		catalogErr *catalog.ValidationError
	)
	switch {
	case errors.As(err, &apptErr), errors.As(err, &accountErr), errors.As(err, &catalogErr):
		h.log.Warn("invalid request", slog.String("op", op), slog.Any("err", err))
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	h.log.Error(op+" failed", slog.Any("err", err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
