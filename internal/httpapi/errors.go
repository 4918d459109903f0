package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"localcode/internal/manager"
	"localcode/pkg/types"
)

// StatusCoder lets an error choose its HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// statusFor maps err to an HTTP status. An unreachable container runtime is a
// 503 so pollers back off instead of treating the server as broken.
func statusFor(err error) int {
	var sc StatusCoder
	switch {
	case manager.IsRuntimeUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.As(err, &sc):
		return sc.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: code})
}
