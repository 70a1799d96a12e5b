package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/cimillas/ticket-rush/internal/app"
	"github.com/cimillas/ticket-rush/internal/domain"
)

// QueueService is the waiting-room surface consumed by the queue handlers.
type QueueService interface {
	Join(ctx context.Context, userID, eventID string) (app.JoinResult, error)
	Position(ctx context.Context, userID, eventID string) (app.PositionResult, error)
	AdmitBatch(ctx context.Context, eventID string, batchSize int) ([]string, error)
	Remove(ctx context.Context, userID, eventID string) (bool, error)
	Status(ctx context.Context, eventID string) (app.StatusResult, error)
}

type joinQueueRequest struct {
	UserID            string `json:"userId"`
	EventID           string `json:"eventId"`
	RequestedQuantity int    `json:"requestedQuantity"`
}

type queuePositionResponse struct {
	UserID            string `json:"userId"`
	Position          int    `json:"position"`
	Admitted          bool   `json:"admitted"`
	EstimatedWaitSecs int64  `json:"estimatedWaitTime"`
}

// HandleQueueJoin enqueues a buyer into an event's waiting room.
func HandleQueueJoin(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req joinQueueRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.UserID == "" {
			req.UserID = requestUserID(r)
		}

		res, err := svc.Join(r.Context(), req.UserID, req.EventID)
		if err != nil {
			writeQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, queuePositionResponse{
			UserID:            res.UserID,
			Position:          res.Position,
			EstimatedWaitSecs: int64(res.EstimatedWait.Seconds()),
		})
	}
}

// HandleQueuePosition reports a user's rank, the admitted sentinel, or 404.
func HandleQueuePosition(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		userID, ok := pathSuffix(r.URL.Path, "queue", "position")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		eventID := r.URL.Query().Get("eventId")

		res, err := svc.Position(r.Context(), userID, eventID)
		if err != nil {
			writeQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, queuePositionResponse{
			UserID:            res.UserID,
			Position:          res.Position,
			Admitted:          res.Admitted,
			EstimatedWaitSecs: int64(res.EstimatedWait.Seconds()),
		})
	}
}

type admitBatchRequest struct {
	EventID   string `json:"eventId"`
	BatchSize int    `json:"batchSize"`
}

type admitBatchResponse struct {
	AdmittedUsers []string `json:"admittedUsers"`
	Count         int      `json:"count"`
}

// HandleQueueAdmit admits the next batch of waiting buyers in FIFO order.
func HandleQueueAdmit(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req admitBatchRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		admitted, err := svc.AdmitBatch(r.Context(), req.EventID, req.BatchSize)
		if err != nil {
			writeQueueError(w, err)
			return
		}
		if admitted == nil {
			admitted = []string{}
		}

		writeJSON(w, http.StatusOK, admitBatchResponse{
			AdmittedUsers: admitted,
			Count:         len(admitted),
		})
	}
}

type queueStatusResponse struct {
	TotalWaiting      int64 `json:"totalWaiting"`
	TotalAdmitted     int64 `json:"totalAdmitted"`
	EstimatedWaitSecs int64 `json:"estimatedWaitTime"`
}

// HandleQueueStatus summarizes an event's waiting room.
func HandleQueueStatus(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		res, err := svc.Status(r.Context(), r.URL.Query().Get("eventId"))
		if err != nil {
			writeQueueError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, queueStatusResponse{
			TotalWaiting:      res.TotalWaiting,
			TotalAdmitted:     res.TotalAdmitted,
			EstimatedWaitSecs: int64(res.EstimatedWait.Seconds()),
		})
	}
}

// HandleQueueRemove drops a user from the waiting set.
func HandleQueueRemove(svc QueueService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		userID, ok := pathSuffix(r.URL.Path, "queue", "remove")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		removed, err := svc.Remove(r.Context(), userID, r.URL.Query().Get("eventId"))
		if err != nil {
			writeQueueError(w, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, codeQueueEntryNotFound, "user not in queue")
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserIDRequired):
		writeError(w, http.StatusBadRequest, codeUserIDRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidBatchSize):
		writeError(w, http.StatusBadRequest, codeInvalidBatchSize, err.Error())
	case errors.Is(err, domain.ErrQueueEntryNotFound):
		writeError(w, http.StatusNotFound, codeQueueEntryNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

// pathSuffix extracts the trailing segment of /<first>/<second>/<value>.
func pathSuffix(path, first, second string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != first || parts[1] != second || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
