package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/winklink/internal/common"
	"github.com/dmitrijs2005/winklink/internal/server/repositories/users"
	"github.com/dmitrijs2005/winklink/internal/server/services"
)

// Envelope statuses.
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// Response is the envelope every endpoint except device lookup answers with.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

var conflictMessages = map[string]string{
	string(users.FieldSerialNumber): "Serial number already exists",
	string(users.FieldEmail):        "Email already exists",
	string(users.FieldOwnerName):    "Username already exists",
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeFail answers a client error.
func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Status: statusFail, Message: message})
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, Response{Status: statusError, Message: "internal error"})
}

// writeServiceError maps service error kinds onto status codes and fixed
// messages. Store error text never reaches the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorConflict):
		msg, ok := conflictMessages[services.ErrorField(err)]
		if !ok {
			msg = "Record already exists"
		}
		writeFail(w, http.StatusConflict, msg)
	case errors.Is(err, common.ErrorValidation):
		// validation messages are built by the service from input, never by the store
		writeFail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeFail(w, http.StatusUnauthorized, common.ErrorInvalidCredentials.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeFail(w, http.StatusNotFound, "Device not found")
	default:
		writeInternalError(w)
	}
}
