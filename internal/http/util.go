package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Phaeld/fiap-enterprise-challenge/internal/apperr"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the structured error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps apperr sentinels onto status codes. Unclassified errors are
// logged and answered with a generic 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, apperr.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid_request", Message: err.Error()})
	case errors.Is(err, apperr.ErrInvalidReference):
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "invalid_reference", Message: err.Error()})
	case errors.Is(err, apperr.ErrModelUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorBody{Error: "model_unavailable", Message: err.Error()})
	default:
		logger.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal_error", Message: "internal server error"})
	}
}

func readBodyJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: failed to read body: %v", apperr.ErrInvalidRequest, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return fmt.Errorf("%w: empty body", apperr.ErrInvalidRequest)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: malformed JSON: %v", apperr.ErrInvalidRequest, err)
	}
	return nil
}

// queryInt returns def when the parameter is absent and a validation error
// when it is present but not an integer.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return i, nil
}

func queryInt64(r *http.Request, name string) (*int64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, apperr.Validation(name, "must be an integer")
	}
	return &i, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperr.Validation(name, "must be a number")
	}
	return &f, nil
}

// allow answers 405 and returns false for any other method.
func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}
