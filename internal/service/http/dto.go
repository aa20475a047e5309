package httpsvc

import (
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
	"github.com/vladislavdragonenkov/pharmacy/internal/service/orders"
)

type addressDTO struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (a *addressDTO) toDomain() *domain.ShippingAddress {
	if a == nil {
		return nil
	}
	return &domain.ShippingAddress{
		FullName:   a.FullName,
		Address:    a.Address,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
	}
}

func addressFromDomain(a domain.ShippingAddress) addressDTO {
	return addressDTO{
		FullName:   a.FullName,
		Address:    a.Address,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
		Phone:      a.Phone,
	}
}

type createOrderItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
	Price     int64  `json:"price"`
}

type prescriptionDataDTO struct {
	ClinicName string `json:"clinicName"`
	// ExtractedText - текст, распознанный клиентом; сервер проверяет его сам.
	ExtractedText string `json:"extractedText"`
}

type createOrderRequest struct {
	Items            []createOrderItemDTO `json:"items"`
	ShippingAddress  *addressDTO          `json:"shippingAddress"`
	TotalAmount      int64                `json:"totalAmount"`
	PaymentMethod    string               `json:"paymentMethod"`
	PrescriptionData *prescriptionDataDTO `json:"prescriptionData"`
	Notes            string               `json:"notes"`
}

func (req createOrderRequest) toCheckout() orders.CheckoutRequest {
	out := orders.CheckoutRequest{
		Items:           make([]orders.CheckoutItem, len(req.Items)),
		ShippingAddress: req.ShippingAddress.toDomain(),
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for i, item := range req.Items {
		out.Items[i] = orders.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price}
	}
	if req.PrescriptionData != nil {
		out.ClinicName = req.PrescriptionData.ClinicName
		out.PrescriptionText = req.PrescriptionData.ExtractedText
	}
	return out
}

type statusUpdateRequest struct {
	OrderID       string  `json:"orderId"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"paymentStatus"`
	Notes         *string `json:"notes"`
}

type orderItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int32  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type prescriptionResponse struct {
	ClinicName      string     `json:"clinicName,omitempty"`
	FileURL         string     `json:"fileUrl,omitempty"`
	UploadedAt      *time.Time `json:"uploadedAt,omitempty"`
	OriginalName    string     `json:"originalName,omitempty"`
	Size            int64      `json:"size,omitempty"`
	Type            string     `json:"type,omitempty"`
	IsValidated     bool       `json:"isValidated"`
	MatchedKeywords []string   `json:"matchedKeywords"`
}

type prescriptionImageResponse struct {
	URL          string    `json:"url"`
	OriginalName string    `json:"originalName,omitempty"`
	Size         int64     `json:"size"`
	Type         string    `json:"type,omitempty"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type orderResponse struct {
	ID                   string                      `json:"id"`
	OrderNumber          string                      `json:"orderNumber"`
	UserID               string                      `json:"userId"`
	User                 *userResponse               `json:"user,omitempty"`
	Items                []orderItemResponse         `json:"items"`
	Subtotal             int64                       `json:"subtotal"`
	ShippingCost         int64                       `json:"shippingCost"`
	TotalAmount          int64                       `json:"totalAmount"`
	Status               string                      `json:"status"`
	PaymentStatus        string                      `json:"paymentStatus"`
	PaymentMethod        string                      `json:"paymentMethod"`
	ShippingAddress      addressDTO                  `json:"shippingAddress"`
	Prescription         *prescriptionResponse       `json:"prescription,omitempty"`
	PrescriptionImages   []prescriptionImageResponse `json:"prescriptionImages,omitempty"`
	RequiresPrescription bool                        `json:"requiresPrescription"`
	Notes                string                      `json:"notes,omitempty"`
	CreatedAt            time.Time                   `json:"createdAt"`
	UpdatedAt            time.Time                   `json:"updatedAt"`
}

func orderFromDomain(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		UserID:               o.UserID,
		Items:                make([]orderItemResponse, len(o.Items)),
		Subtotal:             o.Subtotal,
		ShippingCost:         o.ShippingCost,
		TotalAmount:          o.TotalAmount,
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
		PaymentMethod:        o.PaymentMethod,
		ShippingAddress:      addressFromDomain(o.ShippingAddress),
		RequiresPrescription: o.RequiresPrescription,
		Notes:                o.Notes,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for i, item := range o.Items {
		resp.Items[i] = orderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}
	}
	if p := o.Prescription; p != nil {
		pr := &prescriptionResponse{
			ClinicName:      p.ClinicName,
			FileURL:         p.FileURL,
			OriginalName:    p.OriginalName,
			Size:            p.Size,
			Type:            p.Type,
			IsValidated:     p.IsValidated,
			MatchedKeywords: p.MatchedKeywords,
		}
		if pr.MatchedKeywords == nil {
			pr.MatchedKeywords = []string{}
		}
		if !p.UploadedAt.IsZero() {
			uploaded := p.UploadedAt
			pr.UploadedAt = &uploaded
		}
		resp.Prescription = pr
	}
	for _, img := range o.PrescriptionImages {
		resp.PrescriptionImages = append(resp.PrescriptionImages, prescriptionImageResponse{
			URL:          img.URL,
			OriginalName: img.OriginalName,
			Size:         img.Size,
			Type:         img.Type,
			UploadedAt:   img.UploadedAt,
		})
	}
	return resp
}

func userFromDomain(u domain.User) *userResponse {
	return &userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

type paginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type orderListResponse struct {
	Orders     []orderResponse    `json:"orders"`
	Pagination paginationResponse `json:"pagination"`
}

func orderListFromResult(res orders.ListResult) orderListResponse {
	out := orderListResponse{
		Orders: make([]orderResponse, len(res.Orders)),
		Pagination: paginationResponse{
			Page:  res.Pagination.Page,
			Limit: res.Pagination.Limit,
			Total: res.Pagination.Total,
			Pages: res.Pagination.Pages,
		},
	}
	for i, view := range res.Orders {
		out.Orders[i] = orderFromDomain(view.Order)
		out.Orders[i].User = userFromDomain(view.User)
	}
	return out
}

type prescriptionFileResponse struct {
	URL               string    `json:"url"`
	OriginalName      string    `json:"originalName,omitempty"`
	FileType          string    `json:"fileType,omitempty"`
	Size              int64     `json:"size"`
	FileSizeFormatted string    `json:"fileSizeFormatted"`
	UploadedAt        time.Time `json:"uploadedAt"`
}

type prescriptionDetailResponse struct {
	ClinicName      string                     `json:"clinicName,omitempty"`
	IsValidated     bool                       `json:"isValidated"`
	MatchedKeywords []string                   `json:"matchedKeywords"`
	Files           []prescriptionFileResponse `json:"files"`
	Legacy          bool                       `json:"legacy"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred"`
}

type orderDetailResponse struct {
	orderResponse
	PrescriptionDetails *prescriptionDetailResponse `json:"prescriptionDetails,omitempty"`
	Timeline            []timelineEventResponse     `json:"timeline,omitempty"`
}

func orderDetailFromDomain(d orders.OrderDetail) orderDetailResponse {
	resp := orderDetailResponse{orderResponse: orderFromDomain(d.Order)}
	resp.User = userFromDomain(d.User)

	if p := d.Prescription; p != nil {
		details := &prescriptionDetailResponse{
			ClinicName:      p.ClinicName,
			IsValidated:     p.IsValidated,
			MatchedKeywords: p.MatchedKeywords,
			Files:           make([]prescriptionFileResponse, len(p.Files)),
			Legacy:          p.Legacy,
		}
		if details.MatchedKeywords == nil {
			details.MatchedKeywords = []string{}
		}
		for i, f := range p.Files {
			details.Files[i] = prescriptionFileResponse{
				URL:               f.URL,
				OriginalName:      f.OriginalName,
				FileType:          f.FileType,
				Size:              f.Size,
				FileSizeFormatted: f.FileSizeFormatted,
				UploadedAt:        f.UploadedAt,
			}
		}
		resp.PrescriptionDetails = details
	}

	for _, ev := range d.Timeline {
		resp.Timeline = append(resp.Timeline, timelineEventResponse{Type: ev.Type, Reason: ev.Reason, Occurred: ev.Occurred})
	}
	return resp
}

type cartItemResponse struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int32  `json:"quantity"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total int64              `json:"total"`
	Count int32              `json:"count"`
}

func cartFromDomain(c domain.Cart) cartResponse {
	resp := cartResponse{Items: make([]cartItemResponse, len(c.Items)), Total: c.Total(), Count: c.Count()}
	for i, item := range c.Items {
		resp.Items[i] = cartItemResponse{ProductID: item.ProductID, Name: item.Name, Price: item.Price, Quantity: item.Quantity}
	}
	return resp
}

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type paymentRequest struct {
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
	PhoneNumber   string `json:"phoneNumber"`
}

type paymentCallbackRequest struct {
	TransactionID         string `json:"transactionId"`
	Status                string `json:"status"`
	ExternalTransactionID string `json:"externalTransactionId"`
}

type paymentResponse struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

type validatePrescriptionRequest struct {
	ExtractedText string `json:"extractedText"`
	FileName      string `json:"fileName"`
	ContentType   string `json:"contentType"`
	Size          int64  `json:"size"`
}

type validatePrescriptionResponse struct {
	State           string   `json:"state"`
	IsValid         bool     `json:"isValid"`
	MatchedKeywords []string `json:"matchedKeywords"`
}
