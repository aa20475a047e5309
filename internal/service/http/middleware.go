package httpsvc

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/auth"
	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type callerKey struct{}

func withCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerFrom(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(callerKey{}).(domain.Caller)
	return caller
}

func (h *Handler) requestLogger(r *http.Request) *log.Entry {
	return h.logger.WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

// logRequests пишет строку лога на каждый запрос.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		entry := h.requestLogger(r).WithFields(log.Fields{
			"status":   status,
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Info("http request")
	})
}

// authenticate требует валидный bearer-токен.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			h.writeError(w, r, domain.Unauthenticated(err, "Authentication required"))
			return
		}
		caller, err := h.verifier.Verify(token)
		if err != nil {
			h.writeError(w, r, domain.Unauthenticated(err, "Invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
	})
}

// requireAdmin пропускает только администраторов. Ставится после authenticate.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !callerFrom(r.Context()).IsAdmin() {
			h.writeError(w, r, domain.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkCallbackSecret сверяет X-Callback-Secret, если секрет настроен.
func (h *Handler) checkCallbackSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.callbackSecret != "" {
			got := r.Header.Get(headerCallbackSecret)
			if subtle.ConstantTimeCompare([]byte(got), []byte(h.callbackSecret)) != 1 {
				h.writeError(w, r, domain.Unauthenticated(nil, "Invalid callback secret"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
