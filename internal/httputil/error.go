package httputil

import (
	"errors"
	"net/http"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
)

type errorBody struct {
	Error string `json:"error"`
}

// The helpers below log through the logger RequestLogger put in the request context.

func InternalServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	middleware.LoggerFromContext(r.Context()).Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger := middleware.LoggerFromContext(r.Context())
	if err != nil {
		logger.Warn("bad request", "message", msg, "error", err)
	} else {
		logger.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger := middleware.LoggerFromContext(r.Context())
	if err != nil {
		logger.Warn("not found", "message", msg, "error", err)
	} else {
		logger.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Conflict(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger := middleware.LoggerFromContext(r.Context())
	if err != nil {
		logger.Warn("conflict", "message", msg, "error", err)
	} else {
		logger.Warn("conflict", "message", msg)
	}
	WriteJSON(w, http.StatusConflict, errorBody{Error: msg})
}

// Error writes the response matching the kind of err. msg describes the
// failed operation and is logged for unexpected errors.
func Error(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, bracket.ErrValidation):
		BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, bracket.ErrNotFound):
		NotFound(w, r, err.Error(), nil)
	case errors.Is(err, bracket.ErrConflict):
		Conflict(w, r, err.Error(), nil)
	default:
		InternalServerError(w, r, msg, err)
	}
}
