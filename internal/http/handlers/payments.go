package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	domain "payrelay/internal/domain/payment"
	"payrelay/internal/services/payment"

	"github.com/go-chi/chi/v5"
)

// PaymentService is what the payment routes need from the lifecycle manager.
type PaymentService interface {
	Initiate(ctx context.Context, orderID, email string) (*payment.InitiateResult, error)
	Verify(ctx context.Context, reference string) (*domain.Payment, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
}

type initiateReq struct {
	OrderID string `json:"orderId"`
	Email   string `json:"email"`
}

func InitiatePayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in initiateReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		res, err := svc.Initiate(r.Context(), in.OrderID, in.Email)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"message":     "Payment initiated",
			"paymentLink": res.SessionURL,
			"reference":   res.Payment.TransactionReference,
		})
	}
}

func VerifyPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, err := svc.Verify(r.Context(), chi.URLParam(r, "reference"))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		msg := "Payment failed"
		if p.Status == domain.StatusCompleted {
			msg = "Payment verified successfully"
		}
		WriteJSON(w, http.StatusOK, map[string]any{"message": msg, "payment": p})
	}
}

func GetPaymentByOrder(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByOrderID(r.Context(), chi.URLParam(r, "orderId"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"payment": p})
	}
}

func GetPayment(svc PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"payment": p})
	}
}
