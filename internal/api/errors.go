package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/snapgrab/snapgrab/internal/service"
	"github.com/snapgrab/snapgrab/internal/strategy"
)

func writeInvalidArgument(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

func writePayloadTooLarge(w http.ResponseWriter, limit int64) {
	msg := "request body too large"
	if limit > 0 {
		msg = "request body too large (max " + strconv.FormatInt(limit, 10) + " bytes)"
	}
	WriteError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", msg)
}

func writeDecodeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *requestBodyTooLargeError
	if errors.As(err, &tooLarge) {
		writePayloadTooLarge(w, tooLarge.Limit)
		return
	}
	writeInvalidArgument(w, err.Error())
}

// writeServiceError maps control-plane errors to HTTP response codes.
func writeServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		var status int
		switch svcErr.Code {
		case "INVALID_ARGUMENT":
			status = http.StatusBadRequest
		case "NOT_FOUND":
			status = http.StatusNotFound
		case "CONFLICT":
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}
		WriteError(w, status, svcErr.Code, svcErr.Message)
		return
	}
	WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

// extractionFailure is the resolve failure payload: a status marker, a
// human-readable message, and the classified kind for programmatic
// handling.
type extractionFailure struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorKind string `json:"error_kind"`
}

// writeExtractionError maps a failed resolution to an HTTP status.
// Client mistakes are 4xx; upstream trouble surfaces as 5xx so callers
// can tell "fix your request" from "retry later".
func writeExtractionError(w http.ResponseWriter, err error) {
	kind := strategy.Kind(err)
	var status int
	switch kind {
	case strategy.KindInvalidURL:
		status = http.StatusBadRequest
	case strategy.KindUnsupportedPlatform, strategy.KindNoEligibleFormat:
		status = http.StatusUnprocessableEntity
	case strategy.KindRateLimited:
		status = http.StatusTooManyRequests
	case strategy.KindTransientNetwork:
		status = http.StatusGatewayTimeout
	case strategy.KindAuthRequired, strategy.KindBlocked, strategy.KindAllExhausted:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	msg := "resolution failed"
	if err != nil {
		msg = err.Error()
	}
	WriteJSON(w, status, extractionFailure{
		Status:    "error",
		Message:   msg,
		ErrorKind: string(kind),
	})
}
