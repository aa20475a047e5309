package orders

import (
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/prescription"
)

// PrescriptionFileView - файл рецепта, подготовленный для отображения.
type PrescriptionFileView struct {
	URL               string
	OriginalName      string
	FileType          string
	Size              int64
	FileSizeFormatted string
	UploadedAt        time.Time
}

// PrescriptionView - рецепт заказа в едином виде для обоих форматов хранения.
type PrescriptionView struct {
	ClinicName      string
	IsValidated     bool
	MatchedKeywords []string
	Files           []PrescriptionFileView
	// Legacy - данные пришли из старого массива prescriptionImages.
	Legacy bool
}

// FormatPrescription собирает блок рецепта. Возвращает nil, если рецепта нет.
func FormatPrescription(order domain.Order) *PrescriptionView {
	p := order.Prescription
	if p == nil && len(order.PrescriptionImages) == 0 {
		return nil
	}

	view := &PrescriptionView{}
	if p != nil {
		view.ClinicName = p.ClinicName
		view.IsValidated = p.IsValidated
		view.MatchedKeywords = p.MatchedKeywords
		if p.HasFile() {
			view.Files = append(view.Files, fileView(p.FileURL, p.OriginalName, p.Type, p.Size, p.UploadedAt))
		}
	}
	if len(view.Files) == 0 {
		for _, img := range order.PrescriptionImages {
			view.Files = append(view.Files, fileView(img.URL, img.OriginalName, img.Type, img.Size, img.UploadedAt))
		}
		view.Legacy = len(order.PrescriptionImages) > 0
	}
	return view
}

func fileView(url, name, fileType string, size int64, uploaded time.Time) PrescriptionFileView {
	return PrescriptionFileView{
		URL:               url,
		OriginalName:      name,
		FileType:          fileType,
		Size:              size,
		FileSizeFormatted: prescription.FormatFileSize(size),
		UploadedAt:        uploaded,
	}
}
