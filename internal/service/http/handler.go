// Package httpsvc - REST API магазина: корзина, рецепты, заказы и оплата.
package httpsvc

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/cart"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/orders"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/payment"
)

const (
	headerCallbackSecret = "X-Callback-Secret"

	maxJSONBody      int64 = 1 << 20
	maxMultipartBody       = prescription.MaxFileSize + 1<<20

	defaultRequestTimeout = 30 * time.Second
)

// TokenVerifier проверяет bearer-токен и возвращает вызывающего.
type TokenVerifier interface {
	Verify(token string) (domain.Caller, error)
}

// Options - зависимости HTTP-слоя.
type Options struct {
	Orders      *orders.Service
	Carts       *cart.Service
	Payments    *payment.Service
	Validator   *prescription.Validator
	Verifier    TokenVerifier
	Idempotency *idempotency.Guard
	// Uploads раздаёт сохранённые рецепты под UploadsPath; nil отключает раздачу.
	Uploads     http.Handler
	UploadsPath string
	// CallbackSecret - пустое значение оставляет callback открытым.
	CallbackSecret string
	// Production скрывает details в ответах 5xx.
	Production     bool
	RequestTimeout time.Duration
	Logger         *log.Entry
}

// Handler обслуживает REST API.
type Handler struct {
	orders         *orders.Service
	carts          *cart.Service
	payments       *payment.Service
	validator      *prescription.Validator
	verifier       TokenVerifier
	idempotency    *idempotency.Guard
	uploads        http.Handler
	uploadsPath    string
	callbackSecret string
	production     bool
	timeout        time.Duration
	logger         *log.Entry
}

// NewHandler создаёт Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	validator := opts.Validator
	if validator == nil {
		validator = prescription.NewValidator(nil, logger)
	}
	return &Handler{
		orders:         opts.Orders,
		carts:          opts.Carts,
		payments:       opts.Payments,
		validator:      validator,
		verifier:       opts.Verifier,
		idempotency:    opts.Idempotency,
		uploads:        opts.Uploads,
		uploadsPath:    opts.UploadsPath,
		callbackSecret: opts.CallbackSecret,
		production:     opts.Production,
		timeout:        timeout,
		logger:         logger.WithField("component", "http-api"),
	}
}

// Routes собирает роутер API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.timeout))

	if h.uploads != nil && h.uploadsPath != "" {
		// Файлы рецептов отдаются только аутентифицированным пользователям.
		r.With(h.authenticate).Handle(h.uploadsPath+"/*", h.uploads)
	}

	r.Route("/api", func(r chi.Router) {
		// Callback провайдера приходит без токена пользователя.
		r.With(limitBody(maxJSONBody), h.checkCallbackSecret).Put("/payments", h.paymentCallback)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)

			r.Route("/cart", func(r chi.Router) {
				r.Use(limitBody(maxJSONBody))
				r.Get("/", h.getCart)
				r.Post("/", h.addToCart)
				r.Delete("/", h.clearCart)
				r.Put("/{productId}", h.setCartQuantity)
				r.Delete("/{productId}", h.removeFromCart)
			})

			r.With(limitBody(maxMultipartBody)).Post("/prescriptions/validate", h.validatePrescription)

			r.With(limitBody(maxMultipartBody)).Post("/orders", h.idempotent("orders.create", h.createOrder))
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{id}", h.getOrder)
			r.With(limitBody(maxJSONBody), h.requireAdmin).Put("/orders", h.updateOrderStatus)

			r.With(limitBody(maxJSONBody)).Post("/payments", h.idempotent("payments.initiate", h.initiatePayment))

			r.Route("/admin/orders", func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Get("/", h.adminListOrders)
				r.Get("/{id}", h.adminGetOrder)
				r.With(limitBody(maxJSONBody)).Put("/{id}/status", h.adminUpdateOrderStatus)
			})
		})
	})

	return r
}
