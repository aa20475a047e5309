package httpsvc

import (
	"errors"
	"mime"
	"net/http"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
)

// validatePrescription повторяет на сервере проверку ключевых слов.
// Результат рекомендательный: заказ всё равно считает его заново.
func (h *Handler) validatePrescription(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, err := parseValidateRequest(r)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	session := prescription.NewSession(h.validator)
	state, err := session.Submit(r.Context(), upload)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res := session.Result()
	matched := res.MatchedKeywords
	if matched == nil {
		matched = []string{}
	}
	writeData(w, http.StatusOK, validatePrescriptionResponse{
		State:           string(state),
		IsValid:         res.IsValid,
		MatchedKeywords: matched,
	})
}

func parseValidateRequest(r *http.Request) (prescription.Upload, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != contentTypeMultiple {
		var body validatePrescriptionRequest
		if err := decodeJSON(r, &body); err != nil {
			return prescription.Upload{}, nil, err
		}
		return prescription.Upload{
			FileName:      body.FileName,
			ContentType:   body.ContentType,
			Size:          body.Size,
			ExtractedText: body.ExtractedText,
		}, nil, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return prescription.Upload{}, nil, domain.Validation(err, "Invalid multipart body")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	upload := prescription.Upload{ExtractedText: r.FormValue("extractedText")}
	file, header, err := r.FormFile(formFieldFile)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return prescription.Upload{}, cleanup, domain.Validation(err, "Prescription file is required")
	case err != nil:
		return prescription.Upload{}, cleanup, domain.Validation(err, "Invalid prescription file")
	}
	_ = file.Close()
	upload.FileName = header.Filename
	upload.ContentType = header.Header.Get("Content-Type")
	upload.Size = header.Size
	return upload, cleanup, nil
}
