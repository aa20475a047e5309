package httpsvc

import (
	"net/http"

	"github.com/vladislavdragonenkov/pharmacy/internal/service/payment"
)

func (h *Handler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.payments.Initiate(r.Context(), callerFrom(r.Context()), payment.InitiateRequest{
		OrderID:     body.OrderID,
		Method:      body.PaymentMethod,
		PhoneNumber: body.PhoneNumber,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, paymentResponse{
		PaymentID:     p.ID,
		TransactionID: p.TransactionID,
		Status:        string(p.Status),
		Message:       p.Message,
	})
}

func (h *Handler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var body paymentCallbackRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.payments.Callback(r.Context(), payment.CallbackRequest{
		TransactionID:         body.TransactionID,
		Status:                body.Status,
		ExternalTransactionID: body.ExternalTransactionID,
	}); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Payment status updated", nil)
}
