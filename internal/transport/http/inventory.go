package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/ticket-rush/internal/app"
	"github.com/cimillas/ticket-rush/internal/domain"
)

// InventoryService is the event/inventory surface consumed by these
// handlers. The reserve/release routes exist for orchestrators running in
// a separate process; callers must treat them as at-least-once.
type InventoryService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	Reserve(ctx context.Context, eventID string, quantity int) error
	Release(ctx context.Context, eventID string, quantity int) error
}

type createEventRequest struct {
	Name         string     `json:"name"`
	Location     string     `json:"location"`
	Price        float64    `json:"price"`
	TotalTickets int        `json:"totalTickets"`
	SaleStartsAt *time.Time `json:"saleStartsAt"`
}

type eventResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location"`
	Price            float64   `json:"price"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	SaleStartsAt     time.Time `json:"sale_starts_at"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Name:             e.Name,
		Location:         e.Location,
		Price:            e.Price,
		TotalTickets:     e.TotalTickets,
		AvailableTickets: e.AvailableTickets,
		SaleStartsAt:     e.SaleStartsAt,
	}
}

// HandleEvents serves POST /events (create) and GET /events (list).
func HandleEvents(svc InventoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Name:         req.Name,
				Location:     req.Location,
				Price:        req.Price,
				TotalTickets: req.TotalTickets,
				SaleStartsAt: req.SaleStartsAt,
			})
			if err != nil {
				writeInventoryError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toEventResponse(event))
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeInventoryError(w, err)
				return
			}
			out := make([]eventResponse, 0, len(events))
			for _, e := range events {
				out = append(out, toEventResponse(e))
			}
			writeJSON(w, http.StatusOK, out)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleInventory serves the inventory boundary:
// GET /inventory/{eventId} and POST /inventory/{eventId}/reserve|release.
func HandleInventory(svc InventoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, op, ok := inventoryPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		if op == "" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
				return
			}
			event, err := svc.GetEvent(r.Context(), eventID)
			if err != nil {
				writeInventoryError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toEventResponse(event))
			return
		}

		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
		if err != nil || quantity <= 0 {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, "quantity must be a positive integer")
			return
		}

		switch op {
		case "reserve":
			err = svc.Reserve(r.Context(), eventID, quantity)
		case "release":
			err = svc.Release(r.Context(), eventID, quantity)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeInventoryError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func inventoryPath(path string) (eventID, op string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "inventory" && parts[1] != "":
		return parts[1], "", true
	case len(parts) == 3 && parts[0] == "inventory" && parts[1] != "" && parts[2] != "":
		return parts[1], parts[2], true
	}
	return "", "", false
}

func writeInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNameRequired):
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientTickets):
		writeError(w, http.StatusConflict, codeInsufficientTickets, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, codeVersionConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
