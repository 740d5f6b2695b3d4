package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

// decodeJSON reads an optional JSON object body. An empty body leaves out untouched.
func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperr.New(apperr.KindValidation, "request body must be a JSON object", err)
	}
	return nil
}

// writeJSON encodes payload before the status line is sent, so an encoding
// failure still reaches the client as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode response", "path", r.URL.Path, "request_id", w.Header().Get(requestIDHeader), "error", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Code: "internal_error", Message: "failed to encode response"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindUnknownMetric:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicate:
		return http.StatusConflict
	case apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps typed errors to their status code. Untyped errors become a
// generic 500 so backend details stay in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	if ae == nil {
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", w.Header().Get(requestIDHeader), "error", err)
		s.writeJSON(w, r, http.StatusInternalServerError, errorBody{Code: "internal_error", Message: "internal server error"})
		return
	}

	status := statusFor(ae.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "request_id", w.Header().Get(requestIDHeader), "code", ae.Kind, "error", err)
	} else {
		s.logger.Info("Request rejected", "path", r.URL.Path, "status", status, "code", ae.Kind, "message", ae.Message)
	}
	s.writeJSON(w, r, status, errorBody{Code: string(ae.Kind), Message: ae.Message})
}

// flexInt accepts either a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*f = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%q is not an integer", raw)
	}
	*f = flexInt(n)
	return nil
}
