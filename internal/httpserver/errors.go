package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trackersms/internal/domain"
)

const (
	ErrInvalidJSON   = "Invalid JSON body"
	ErrInvalidID     = "Invalid id"
	ErrInternal      = "Internal server error"
	ErrUnauthorized  = "Invalid or missing API key"
	ErrTooManyReqs   = "Too many requests, please try again later"
	ErrRouteNotFound = "Route not found"
)

func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {success:false, error, ...}. Domain error details
// given as a map are merged into the body; anything else becomes details.
// Non-domain errors are logged and reported as 500, with the cause only in
// development.
func writeError(w http.ResponseWriter, r *http.Request, err error, development bool) {
	var de *domain.Error
	if errors.As(err, &de) {
		body := map[string]any{"success": false, "error": de.Message}
		switch d := de.Details.(type) {
		case nil:
		case map[string]any:
			for k, v := range d {
				body[k] = v
			}
		default:
			body["details"] = d
		}
		writeJSON(w, statusForKind(de.Kind), body)
		return
	}

	slog.Error("request failed",
		"err", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestIDFrom(r.Context()),
	)
	body := map[string]any{"success": false, "error": ErrInternal}
	if development {
		body["message"] = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// bodyError reports a body whose field has the wrong type by name; anything
// else is malformed JSON.
func bodyError(err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return domain.Validation("Invalid value for "+te.Field, map[string]any{"field": te.Field})
	}
	return domain.Validation(ErrInvalidJSON, nil)
}
