package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidQuantity     = "invalid_quantity"
	codeUserIDRequired      = "user_id_required"
	codeInvalidBatchSize    = "invalid_batch_size"
	codeQueueEntryNotFound  = "queue_entry_not_found"
	codeNotAdmitted         = "not_admitted"
	codeEventNotFound       = "event_not_found"
	codeEventNameRequired   = "event_name_required"
	codeInvalidCapacity     = "invalid_capacity"
	codeInsufficientTickets = "insufficient_tickets"
	codeVersionConflict     = "version_conflict"
	codeHoldExpired         = "hold_expired"
	codeOrderNotFound       = "order_not_found"
	codeOrderNotCancellable = "order_not_cancellable"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
