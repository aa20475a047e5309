package httpsvc

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError переводит класс ошибки в HTTP-статус. Текст внутренней ошибки
// попадает в details только вне production.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromKind(domain.KindOf(err))
	body := envelope{Success: false, Error: domain.PublicMessage(err)}

	if status >= http.StatusInternalServerError {
		h.requestLogger(r).WithError(err).Error("request failed")
		if !h.production {
			body.Details = err.Error()
		}
	} else {
		h.requestLogger(r).WithFields(log.Fields{
			"status": status,
			"reason": body.Error,
		}).Debug("request rejected")
	}
	writeJSON(w, status, body)
}

func statusFromKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindAuthenticationRequired:
		return http.StatusUnauthorized
	case domain.KindAuthorizationDenied:
		return http.StatusForbidden
	case domain.KindValidationFailed:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validation(err, "Invalid JSON body")
	}
	return nil
}
