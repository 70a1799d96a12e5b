package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cimillas/ticket-rush/internal/app"
	"github.com/cimillas/ticket-rush/internal/domain"
)

// BookingService is the orchestration surface consumed by the booking
// handlers.
type BookingService interface {
	CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.BookingResult, error)
	ConfirmPayment(ctx context.Context, in app.ConfirmPaymentInput) (app.ConfirmResult, error)
	CancelBooking(ctx context.Context, orderID, userID string) error
	GetOrder(ctx context.Context, orderID, requesterID string) (domain.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type createBookingRequest struct {
	EventID  string `json:"eventId"`
	Quantity int    `json:"quantity"`
}

type bookingResponse struct {
	OrderID    string    `json:"orderId"`
	HoldID     string    `json:"holdId"`
	EventID    string    `json:"eventId"`
	Quantity   int       `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// HandleBookings serves POST /bookings (create) and GET /bookings (the
// caller's order history). Identity comes from the auth gateway header.
func HandleBookings(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			createBooking(w, r, svc)
		case http.MethodGet:
			listBookings(w, r, svc)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func createBooking(w http.ResponseWriter, r *http.Request, svc BookingService) {
	var req createBookingRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	res, err := svc.CreateBooking(r.Context(), app.CreateBookingInput{
		UserID:   requestUserID(r),
		EventID:  req.EventID,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookingResponse{
		OrderID:    res.Order.ID,
		HoldID:     res.Hold.ID,
		EventID:    res.Order.EventID,
		Quantity:   res.Order.Quantity,
		TotalPrice: res.Order.TotalPrice,
		Status:     string(res.Order.Status),
		ExpiresAt:  res.Order.ExpiresAt,
	})
}

func listBookings(w http.ResponseWriter, r *http.Request, svc BookingService) {
	orders, err := svc.ListUserOrders(r.Context(), requestUserID(r))
	if err != nil {
		writeBookingError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type confirmPaymentRequest struct {
	OrderID       string `json:"orderId"`
	HoldID        string `json:"holdId"`
	PaymentMethod string `json:"paymentMethod"`
}

type confirmPaymentResponse struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId,omitempty"`
	Message   string `json:"message"`
}

// HandleConfirmPayment settles a pending order. Expired holds and declined
// payments both come back as 409 with the persisted terminal status.
func HandleConfirmPayment(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req confirmPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.OrderID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "orderId is required")
			return
		}

		res, err := svc.ConfirmPayment(r.Context(), app.ConfirmPaymentInput{
			OrderID:       req.OrderID,
			HoldID:        req.HoldID,
			UserID:        requestUserID(r),
			PaymentMethod: req.PaymentMethod,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}

		resp := confirmPaymentResponse{
			OrderID:   res.Order.ID,
			Status:    string(res.Order.Status),
			PaymentID: res.Order.PaymentID,
			Message:   res.Message,
		}
		switch res.Order.Status {
		case domain.OrderStatusExpired, domain.OrderStatusFailed:
			writeJSON(w, http.StatusConflict, resp)
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	}
}

type orderResponse struct {
	OrderID     string     `json:"orderId"`
	EventID     string     `json:"eventId"`
	Quantity    int        `json:"quantity"`
	TotalPrice  float64    `json:"totalPrice"`
	Status      string     `json:"status"`
	PaymentID   string     `json:"paymentId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		OrderID:     o.ID,
		EventID:     o.EventID,
		Quantity:    o.Quantity,
		TotalPrice:  o.TotalPrice,
		Status:      string(o.Status),
		PaymentID:   o.PaymentID,
		CreatedAt:   o.CreatedAt,
		ExpiresAt:   o.ExpiresAt,
		CompletedAt: o.CompletedAt,
	}
}

// HandleBookingByID serves GET and DELETE on /bookings/{orderId}.
func HandleBookingByID(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, ok := bookingPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			order, err := svc.GetOrder(r.Context(), orderID, requestUserID(r))
			if err != nil {
				writeBookingError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toOrderResponse(order))
		case http.MethodDelete:
			if err := svc.CancelBooking(r.Context(), orderID, requestUserID(r)); err != nil {
				writeBookingError(w, err)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func bookingPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "bookings" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserIDRequired):
		writeError(w, http.StatusBadRequest, codeUserIDRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrNotAdmitted):
		writeError(w, http.StatusForbidden, codeNotAdmitted, err.Error())
	case errors.Is(err, domain.ErrOrderAccessDenied):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientTickets):
		writeError(w, http.StatusConflict, codeInsufficientTickets, err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, codeVersionConflict, err.Error())
	case errors.Is(err, domain.ErrHoldExpired):
		writeError(w, http.StatusConflict, codeHoldExpired, err.Error())
	case errors.Is(err, domain.ErrOrderNotCancellable):
		writeError(w, http.StatusBadRequest, codeOrderNotCancellable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
