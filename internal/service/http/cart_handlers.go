package httpsvc

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), callerFrom(r.Context()).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cartFromDomain(c))
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var body cartItemRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.Add(r.Context(), callerFrom(r.Context()).UserID, body.ProductID, body.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cartFromDomain(c))
}

func (h *Handler) setCartQuantity(w http.ResponseWriter, r *http.Request) {
	var body cartItemRequest
	if err := decodeJSON(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.carts.SetQuantity(r.Context(), callerFrom(r.Context()).UserID, chi.URLParam(r, "productId"), body.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cartFromDomain(c))
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Remove(r.Context(), callerFrom(r.Context()).UserID, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, cartFromDomain(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), callerFrom(r.Context()).UserID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Cart cleared", nil)
}
