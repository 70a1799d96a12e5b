package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/ticket-rush/internal/app"
	"github.com/cimillas/ticket-rush/internal/domain"
)

type stubBookingService struct {
	createRes  app.BookingResult
	createErr  error
	confirmRes app.ConfirmResult
	confirmErr error
	cancelErr  error
	order      domain.Order
	orderErr   error
	orders     []domain.Order

	lastCreate  app.CreateBookingInput
	lastConfirm app.ConfirmPaymentInput
}

func (s *stubBookingService) CreateBooking(ctx context.Context, in app.CreateBookingInput) (app.BookingResult, error) {
	s.lastCreate = in
	return s.createRes, s.createErr
}

func (s *stubBookingService) ConfirmPayment(ctx context.Context, in app.ConfirmPaymentInput) (app.ConfirmResult, error) {
	s.lastConfirm = in
	return s.confirmRes, s.confirmErr
}

func (s *stubBookingService) CancelBooking(ctx context.Context, orderID, userID string) error {
	return s.cancelErr
}

func (s *stubBookingService) GetOrder(ctx context.Context, orderID, requesterID string) (domain.Order, error) {
	return s.order, s.orderErr
}

func (s *stubBookingService) ListUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.orders, nil
}

func TestHandleBookings_Create(t *testing.T) {
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("creates booking for admitted user", func(t *testing.T) {
		svc := &stubBookingService{createRes: app.BookingResult{
			Order: domain.Order{
				ID:         "order-1",
				EventID:    "event-1",
				Quantity:   2,
				TotalPrice: 100,
				Status:     domain.OrderStatusPending,
				ExpiresAt:  now.Add(10 * time.Minute),
			},
			Hold: domain.Hold{ID: "hold-1"},
		}}

		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(
			`{"eventId":"event-1","quantity":2}`,
		))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		HandleBookings(svc)(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp bookingResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.OrderID != "order-1" || resp.HoldID != "hold-1" || resp.Status != "pending" {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if svc.lastCreate.UserID != "user-1" {
			t.Fatalf("expected user from header, got %q", svc.lastCreate.UserID)
		}
	})

	t.Run("maps not admitted to 403", func(t *testing.T) {
		svc := &stubBookingService{createErr: domain.ErrNotAdmitted}
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(
			`{"eventId":"event-1","quantity":2}`,
		))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		HandleBookings(svc)(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("maps sold out to 409", func(t *testing.T) {
		svc := &stubBookingService{createErr: domain.ErrInsufficientTickets}
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(
			`{"eventId":"event-1","quantity":2}`,
		))
		rec := httptest.NewRecorder()
		HandleBookings(svc)(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("maps contention exhaustion to 409", func(t *testing.T) {
		svc := &stubBookingService{createErr: domain.ErrVersionConflict}
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(
			`{"eventId":"event-1","quantity":2}`,
		))
		rec := httptest.NewRecorder()
		HandleBookings(svc)(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		HandleBookings(&stubBookingService{})(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleBookings_List(t *testing.T) {
	svc := &stubBookingService{orders: []domain.Order{
		{ID: "order-1", Status: domain.OrderStatusCompleted},
		{ID: "order-2", Status: domain.OrderStatusPending},
	}}

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	HandleBookings(svc)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []orderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(resp))
	}
}

func TestHandleConfirmPayment(t *testing.T) {
	t.Run("completed order returns 200", func(t *testing.T) {
		svc := &stubBookingService{confirmRes: app.ConfirmResult{
			Order: domain.Order{
				ID:        "order-1",
				Status:    domain.OrderStatusCompleted,
				PaymentID: "pay-1",
			},
			Message: "payment approved",
		}}

		req := httptest.NewRequest(http.MethodPost, "/bookings/payment", strings.NewReader(
			`{"orderId":"order-1","paymentMethod":"card"}`,
		))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		HandleConfirmPayment(svc)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp confirmPaymentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != "completed" || resp.PaymentID != "pay-1" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("expired order returns 409 with status", func(t *testing.T) {
		svc := &stubBookingService{confirmRes: app.ConfirmResult{
			Order:   domain.Order{ID: "order-1", Status: domain.OrderStatusExpired},
			Message: "hold expired",
		}}

		req := httptest.NewRequest(http.MethodPost, "/bookings/payment", strings.NewReader(
			`{"orderId":"order-1"}`,
		))
		rec := httptest.NewRecorder()
		HandleConfirmPayment(svc)(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		var resp confirmPaymentResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Status != "expired" {
			t.Fatalf("expected expired status, got %s", resp.Status)
		}
	})

	t.Run("declined payment returns 409", func(t *testing.T) {
		svc := &stubBookingService{confirmRes: app.ConfirmResult{
			Order:   domain.Order{ID: "order-1", Status: domain.OrderStatusFailed},
			Message: "card declined",
		}}

		req := httptest.NewRequest(http.MethodPost, "/bookings/payment", strings.NewReader(
			`{"orderId":"order-1"}`,
		))
		rec := httptest.NewRecorder()
		HandleConfirmPayment(svc)(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("missing order id is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/bookings/payment", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		HandleConfirmPayment(&stubBookingService{})(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		svc := &stubBookingService{confirmErr: domain.ErrOrderNotFound}
		req := httptest.NewRequest(http.MethodPost, "/bookings/payment", strings.NewReader(
			`{"orderId":"missing"}`,
		))
		rec := httptest.NewRecorder()
		HandleConfirmPayment(svc)(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestHandleBookingByID(t *testing.T) {
	t.Run("returns own order", func(t *testing.T) {
		svc := &stubBookingService{order: domain.Order{ID: "order-1", Status: domain.OrderStatusPending}}
		req := httptest.NewRequest(http.MethodGet, "/bookings/order-1", nil)
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		HandleBookingByID(svc)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("foreign order is 403", func(t *testing.T) {
		svc := &stubBookingService{orderErr: domain.ErrOrderAccessDenied}
		req := httptest.NewRequest(http.MethodGet, "/bookings/order-1", nil)
		rec := httptest.NewRecorder()
		HandleBookingByID(svc)(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("cancel succeeds", func(t *testing.T) {
		svc := &stubBookingService{}
		req := httptest.NewRequest(http.MethodDelete, "/bookings/order-1", nil)
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		HandleBookingByID(svc)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("cancel of settled order is 400", func(t *testing.T) {
		svc := &stubBookingService{cancelErr: domain.ErrOrderNotCancellable}
		req := httptest.NewRequest(http.MethodDelete, "/bookings/order-1", nil)
		rec := httptest.NewRecorder()
		HandleBookingByID(svc)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
