package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"academy-quiz-service/internal/auth"
	"academy-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

type errorPayload struct {
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrPINRequired),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrInvalidBank),
		errors.Is(err, auth.ErrPasswordRequired),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidPIN):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDisciplineNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBankNotFound),
		errors.Is(err, domain.ErrBankNotLoaded),
		errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, domain.ErrNotInProgress),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrQuestionLocked),
		errors.Is(err, auth.ErrNoPendingSecret):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSecondFactorRequired),
		errors.Is(err, auth.ErrInvalidSecondFactor),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrLocked):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError hides internal error details from clients and logs them instead.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

var errBadRequest = errors.New("malformed request body")
