package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/nsut-attendance/backend/internal/auth"
	"github.com/nsut-attendance/backend/internal/logger"
	"github.com/nsut-attendance/backend/pkg/attendance"
	"github.com/nsut-attendance/backend/pkg/db"
)

const maxBodyBytes = 1 << 20

// envelope is the body of every response: success plus payload fields, or
// success=false plus a human-readable message.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := sonic.ConfigStd.Marshal(payload)
	if err != nil {
		logger.LogError("Failed to encode response", err)
		http.Error(w, `{"success":false,"message":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeOK(w http.ResponseWriter, fields envelope) {
	fields["success"] = true
	writeJSON(w, http.StatusOK, fields)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if err := sonic.ConfigStd.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}

// writeFailure maps ledger, directory and auth errors onto HTTP statuses.
// Store-level write failures are reported as a single "failed to save
// attendance". Timeouts win over the write failure that wraps them.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var ve *attendance.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, envelope{
			"success": false,
			"message": "invalid input",
			"errors":  ve.Fields,
		})
	case errors.Is(err, attendance.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", "error", err)
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, db.ErrUnavailable):
		log.Error("store unavailable", "error", err)
		msg := "service temporarily unavailable"
		if errors.Is(err, attendance.ErrWriteFailed) {
			msg = attendance.ErrWriteFailed.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
	case errors.Is(err, attendance.ErrWriteFailed):
		writeError(w, http.StatusUnprocessableEntity, attendance.ErrWriteFailed.Error())
	case errors.Is(err, attendance.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	default:
		log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
