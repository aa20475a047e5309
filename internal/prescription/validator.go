// Package prescription проверяет, похоже ли загруженное изображение на медицинский рецепт.
// Проверка эвристическая и носит рекомендательный характер.
package prescription

import (
	"context"
	"errors"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// MaxFileSize - предельный размер файла рецепта.
const MaxFileSize int64 = 5 * 1024 * 1024

var (
	// ErrUnsupportedType - файл не является изображением JPEG/PNG/GIF.
	ErrUnsupportedType = errors.New("unsupported prescription file type")
	// ErrFileTooLarge - файл больше MaxFileSize.
	ErrFileTooLarge = errors.New("prescription file is too large")
	// ErrEmptyFile - пустой файл.
	ErrEmptyFile = errors.New("prescription file is empty")
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// Upload - файл рецепта, переданный на проверку.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
	// ExtractedText - текст, уже распознанный на стороне клиента.
	ExtractedText string
}

// TextRecognizer извлекает текст из изображения рецепта.
type TextRecognizer interface {
	Recognize(ctx context.Context, upload Upload) (string, error)
}

// ProvidedTextRecognizer возвращает текст, распознанный клиентом.
type ProvidedTextRecognizer struct{}

// Recognize реализует TextRecognizer.
func (ProvidedTextRecognizer) Recognize(_ context.Context, upload Upload) (string, error) {
	return upload.ExtractedText, nil
}

// Result - результат проверки рецепта. В заказ попадают только IsValid и MatchedKeywords.
type Result struct {
	Text            string
	MatchedKeywords []string
	IsValid         bool
	// RecognitionFailed - распознавание упало, результат считается невалидным.
	RecognitionFailed bool
}

// Validator проверяет рецепты.
type Validator struct {
	recognizer TextRecognizer
	logger     *log.Entry
}

// NewValidator создаёт валидатор. nil recognizer заменяется ProvidedTextRecognizer.
func NewValidator(recognizer TextRecognizer, logger *log.Entry) *Validator {
	if recognizer == nil {
		recognizer = ProvidedTextRecognizer{}
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Validator{recognizer: recognizer, logger: logger.WithField("component", "prescription-validator")}
}

// CheckImage проверяет тип и размер файла до распознавания.
func CheckImage(contentType string, size int64) error {
	if !imageTypes[normalizeContentType(contentType)] {
		return domain.Validation(ErrUnsupportedType, "Only JPEG, PNG and GIF images are accepted")
	}
	return checkSize(size)
}

// CheckAttachment проверяет файл, приложенный к заказу: дополнительно разрешён PDF.
func CheckAttachment(contentType string, size int64) error {
	ct := normalizeContentType(contentType)
	if !imageTypes[ct] && ct != "application/pdf" {
		return domain.Validation(ErrUnsupportedType, "Prescription must be an image or a PDF document")
	}
	return checkSize(size)
}

func checkSize(size int64) error {
	if size <= 0 {
		return domain.Validation(ErrEmptyFile, "Prescription file is empty")
	}
	if size > MaxFileSize {
		return domain.Validation(ErrFileTooLarge, "Prescription file must not exceed %s", FormatFileSize(MaxFileSize))
	}
	return nil
}

// Validate проверяет файл и текст рецепта. Ошибка возвращается только для
// некорректного файла; сбой распознавания даёт невалидный результат.
func (v *Validator) Validate(ctx context.Context, upload Upload) (Result, error) {
	if upload.Size > 0 || upload.ContentType != "" {
		if err := CheckImage(upload.ContentType, upload.Size); err != nil {
			return Result{}, err
		}
	}

	text, err := v.recognizer.Recognize(ctx, upload)
	if err != nil {
		v.logger.WithError(err).WithField("file", upload.FileName).Warn("распознавание рецепта не удалось")
		return Result{RecognitionFailed: true}, nil
	}

	matched := MatchKeywords(text)
	res := Result{
		Text:            text,
		MatchedKeywords: matched,
		IsValid:         len(matched) >= MinKeywordMatches,
	}
	v.logger.WithFields(log.Fields{
		"file":     upload.FileName,
		"matched":  len(matched),
		"is_valid": res.IsValid,
	}).Debug("prescription checked")
	return res, nil
}

func normalizeContentType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = strings.TrimSpace(ct[:idx])
	}
	return ct
}
