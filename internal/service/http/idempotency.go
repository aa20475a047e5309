package httpsvc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/idempotency"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)

// capturingWriter пишет ответ клиенту и параллельно копит его для кэша.
type capturingWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *capturingWriter) WriteHeader(status int) {
	if c.status == 0 {
		c.status = status
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *capturingWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.buf.Write(p)
	return c.ResponseWriter.Write(p)
}

// idempotent оборачивает обработчик: запрос с тем же Idempotency-Key и тем же
// телом получает сохранённый ответ. Ключи разнесены по пользователям.
func (h *Handler) idempotent(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
		if key == "" || h.idempotency == nil {
			next(w, r)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeError(w, r, domain.Validation(err, "Failed to read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		caller := callerFrom(r.Context())
		scopedKey := caller.UserID + ":" + scope + ":" + key
		replay, err := h.idempotency.Begin(r.Context(), scopedKey,
			idempotency.RequestHash(scope, caller.UserID, requestFingerprint(r.Header.Get("Content-Type"), body)))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if replay != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(headerReplayed, "true")
			w.WriteHeader(replay.StatusCode)
			_, _ = w.Write(replay.Body)
			return
		}

		cw := &capturingWriter{ResponseWriter: w}
		next(cw, r)
		h.idempotency.Complete(context.WithoutCancel(r.Context()), scopedKey, idempotency.Response{
			StatusCode: cw.status,
			Body:       cw.buf.Bytes(),
		})
	}
}

// requestFingerprint описывает тело запроса без случайных деталей кодирования.
// Для multipart граница меняется на каждой попытке клиента, поэтому в отпечаток
// попадают только имена полей, имена файлов, размеры и sha256 содержимого.
func requestFingerprint(contentType string, body []byte) []byte {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return append([]byte(contentType+"\n"), body...)
	}
	if mediaType != contentTypeMultiple || params["boundary"] == "" {
		return append([]byte(mediaType+"\n"), body...)
	}

	parts, err := multipartDigest(body, params["boundary"])
	if err != nil {
		// Битое тело всё равно отклонит обработчик.
		return append([]byte(contentType+"\n"), body...)
	}
	slices.Sort(parts)
	return []byte(mediaType + "\n" + strings.Join(parts, "\n"))
}

func multipartDigest(body []byte, boundary string) ([]string, error) {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	var parts []string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, err
		}
		h := sha256.New()
		size, err := io.Copy(h, part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf("%s\x00%s\x00%d\x00%s",
			part.FormName(), part.FileName(), size, hex.EncodeToString(h.Sum(nil))))
	}
}
