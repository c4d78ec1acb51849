package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ariefcatur/club-portal/internal/auth"
	"github.com/ariefcatur/club-portal/internal/domain"
	"github.com/ariefcatur/club-portal/internal/logging"
)

const maxBody = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidStatusTransition), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsRuleViolation(err):
		return http.StatusUnprocessableEntity
	case domain.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status and the {"error","code"} body. Server
// side failures are logged and their detail withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	body := errorBody{Error: err.Error(), Code: domain.Code(err)}
	switch code {
	case http.StatusBadRequest:
		body.Code = "bad_request"
	case http.StatusUnauthorized:
		body.Code = "unauthenticated"
		body.Error = auth.ErrUnauthenticated.Error()
	case http.StatusServiceUnavailable:
		body.Error = "the request could not be completed right now, please try again"
		logging.FromContext(r.Context()).Error("transaction failed", "err", err)
	case http.StatusInternalServerError:
		body = errorBody{Error: "internal error", Code: "internal"}
		logging.FromContext(r.Context()).Error("request failed", "err", err)
	}
	writeJSON(w, code, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}
