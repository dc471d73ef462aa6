package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/estatedesk/internal/errs"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error       string `json:"error"`
	MFARequired bool   `json:"mfa_required,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusOf maps service sentinels to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrMFARequired),
		errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrInvalidCode),
		errors.Is(err, errs.ErrAdminUnknown),
		errors.Is(err, errs.ErrAdminPasswordMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	body := ErrorBody{Error: err.Error(), MFARequired: errors.Is(err, errs.ErrMFARequired)}
	if code == http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		body.Error = "internal"
	}
	writeJSON(w, code, body)
}

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "validation: invalid json"})
		return false
	}
	return true
}
