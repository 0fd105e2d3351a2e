package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"inkpost/app/apperrors"
	"inkpost/app/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const genericErrorMessage = "Something went wrong. Please try again later."

// statusFor maps an error kind to the HTTP status a client sees.
func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Gone:
		return http.StatusGone
	case apperrors.InvalidArgument:
		return http.StatusBadRequest
	case apperrors.Forbidden:
		return http.StatusForbidden
	case apperrors.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// sendError answers with the user message of err. Internal failures only ever show a generic message.
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(apperrors.KindOf(err))
	message := apperrors.UserMessage(err, genericErrorMessage)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("traceId", middleware.TraceIDFromContext(r.Context())).Str("path", r.URL.Path).
			Msg("Request failed")
		message = genericErrorMessage
	}
	middleware.WriteError(w, r, status, message)
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.InvalidArgument, "Invalid id", "malformed path id "+mux.Vars(r)[name])
	}
	return id, nil
}

// queryPage parses the page parameter. ok is false when the parameter is absent.
func queryPage(r *http.Request) (page int, ok bool, err error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0, false, nil
	}
	page, err = strconv.Atoi(raw)
	if err != nil {
		return 0, false, apperrors.New(apperrors.InvalidArgument, "Invalid page number", "malformed page "+raw)
	}
	return page, true, nil
}
