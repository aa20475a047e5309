package httpsvc

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/orders"
)

const (
	multipartMemory     = 8 << 20
	formFieldData       = "data"
	formFieldFile       = "prescriptionFile"
	contentTypeMultiple = "multipart/form-data"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := parseCreateOrder(r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), callerFrom(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, orderFromDomain(order))
}

// parseCreateOrder принимает JSON или multipart: JSON целиком в поле data
// либо отдельные поля формы, плюс необязательный файл prescriptionFile.
func parseCreateOrder(r *http.Request) (orders.CheckoutRequest, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != contentTypeMultiple {
		var body createOrderRequest
		if err := decodeJSON(r, &body); err != nil {
			return orders.CheckoutRequest{}, nil, err
		}
		return body.toCheckout(), nil, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return orders.CheckoutRequest{}, nil, domain.Validation(err, "Request body is too large")
		}
		return orders.CheckoutRequest{}, nil, domain.Validation(err, "Invalid multipart body")
	}
	cleanups := []func(){func() { _ = r.MultipartForm.RemoveAll() }}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	body, err := formOrderRequest(r)
	if err != nil {
		return orders.CheckoutRequest{}, cleanup, err
	}
	req := body.toCheckout()

	file, header, err := r.FormFile(formFieldFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return orders.CheckoutRequest{}, cleanup, domain.Validation(err, "Invalid prescription file")
	default:
		cleanups = append(cleanups, func() { _ = file.Close() })
		req.File = &orders.PrescriptionFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	}
	return req, cleanup, nil
}

func formOrderRequest(r *http.Request) (createOrderRequest, error) {
	var body createOrderRequest
	if raw := r.FormValue(formFieldData); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return body, domain.Validation(err, "Invalid JSON in data field")
		}
		return body, nil
	}

	if raw := r.FormValue("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body.Items); err != nil {
			return body, domain.Validation(err, "Invalid items field")
		}
	}
	if raw := r.FormValue("shippingAddress"); raw != "" {
		body.ShippingAddress = &addressDTO{}
		if err := json.Unmarshal([]byte(raw), body.ShippingAddress); err != nil {
			return body, domain.Validation(err, "Invalid shippingAddress field")
		}
	}
	if raw := strings.TrimSpace(r.FormValue("totalAmount")); raw != "" {
		total, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return body, domain.Validation(err, "Invalid totalAmount field")
		}
		body.TotalAmount = total
	}
	if raw := r.FormValue("prescriptionData"); raw != "" {
		body.PrescriptionData = &prescriptionDataDTO{}
		if err := json.Unmarshal([]byte(raw), body.PrescriptionData); err != nil {
			return body, domain.Validation(err, "Invalid prescriptionData field")
		}
	} else if clinic := r.FormValue("clinicName"); clinic != "" {
		body.PrescriptionData = &prescriptionDataDTO{ClinicName: clinic, ExtractedText: r.FormValue("extractedText")}
	}
	body.PaymentMethod = r.FormValue("paymentMethod")
	body.Notes = r.FormValue("notes")
	return body, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	h.writeOrderList(w, r, orders.DefaultPageLimit)
}

func (h *Handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	h.writeOrderList(w, r, orders.DefaultAdminPageLimit)
}

func (h *Handler) writeOrderList(w http.ResponseWriter, r *http.Request, defaultLimit int) {
	q := r.URL.Query()
	req := orders.ListRequest{
		Page:   queryInt(q.Get("page")),
		Limit:  queryInt(q.Get("limit")),
		Status: q.Get("status"),
	}
	res, err := h.orders.List(r.Context(), callerFrom(r.Context()), req, defaultLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orderListFromResult(res))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := h.orders.Get(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, orderDetailFromDomain(detail))
}

func (h *Handler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	h.getOrder(w, r)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.applyStatus(w, r, body)
}

func (h *Handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdateRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	body.OrderID = chi.URLParam(r, "id")
	h.applyStatus(w, r, body)
}

func (h *Handler) applyStatus(w http.ResponseWriter, r *http.Request, body statusUpdateRequest) {
	order, err := h.orders.UpdateStatus(r.Context(), callerFrom(r.Context()), orders.StatusRequest{
		OrderID:       body.OrderID,
		Status:        body.Status,
		PaymentStatus: body.PaymentStatus,
		Notes:         body.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order status updated", orderFromDomain(order))
}

// queryInt разбирает числовой параметр; некорректное значение даёт 0 (значение по умолчанию).
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
