package mongodb

import (
	"time"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type orderItemDocument struct {
	ProductID any    `bson:"product"`
	Name      string `bson:"name"`
	Price     int64  `bson:"price"`
	Quantity  int32  `bson:"quantity"`
	Subtotal  int64  `bson:"subtotal"`
}

type addressDocument struct {
	FullName   string `bson:"fullName"`
	Address    string `bson:"address"`
	City       string `bson:"city"`
	Country    string `bson:"country"`
	PostalCode string `bson:"postalCode,omitempty"`
	Phone      string `bson:"phone,omitempty"`
}

type prescriptionDocument struct {
	ClinicName      string    `bson:"clinicName,omitempty"`
	FileURL         string    `bson:"fileUrl,omitempty"`
	UploadedAt      time.Time `bson:"uploadedAt,omitempty"`
	OriginalName    string    `bson:"originalName,omitempty"`
	Size            int64     `bson:"size,omitempty"`
	Type            string    `bson:"type,omitempty"`
	IsValidated     bool      `bson:"isValidated"`
	MatchedKeywords []string  `bson:"matchedKeywords"`
}

type prescriptionImageDocument struct {
	URL          string    `bson:"url"`
	OriginalName string    `bson:"originalName,omitempty"`
	Size         int64     `bson:"size"`
	Type         string    `bson:"type,omitempty"`
	UploadedAt   time.Time `bson:"uploadedAt"`
}

// orderDocument - форма заказа в коллекции orders. _id и userId
// декодируются в any: в старых документах они бывают строками.
type orderDocument struct {
	ID                   any                         `bson:"_id"`
	OrderNumber          string                      `bson:"orderNumber"`
	UserID               any                         `bson:"userId"`
	Items                []orderItemDocument         `bson:"items"`
	Subtotal             int64                       `bson:"subtotal"`
	ShippingCost         int64                       `bson:"shippingCost"`
	TotalAmount          int64                       `bson:"totalAmount"`
	Status               string                      `bson:"status"`
	PaymentStatus        string                      `bson:"paymentStatus"`
	PaymentMethod        string                      `bson:"paymentMethod"`
	ShippingAddress      addressDocument             `bson:"shippingAddress"`
	Prescription         *prescriptionDocument       `bson:"prescription,omitempty"`
	PrescriptionImages   []prescriptionImageDocument `bson:"prescriptionImages,omitempty"`
	RequiresPrescription bool                        `bson:"requiresPrescription"`
	Notes                string                      `bson:"notes,omitempty"`
	CreatedAt            time.Time                   `bson:"createdAt"`
	UpdatedAt            time.Time                   `bson:"updatedAt"`
}

func orderToDocument(o domain.Order) orderDocument {
	doc := orderDocument{
		ID:                   docID(o.ID),
		OrderNumber:          o.OrderNumber,
		UserID:               userRef(o.UserID),
		Items:                make([]orderItemDocument, len(o.Items)),
		Subtotal:             o.Subtotal,
		ShippingCost:         o.ShippingCost,
		TotalAmount:          o.TotalAmount,
		Status:               string(o.Status),
		PaymentStatus:        string(o.PaymentStatus),
		PaymentMethod:        o.PaymentMethod,
		ShippingAddress:      addressDocument(o.ShippingAddress),
		RequiresPrescription: o.RequiresPrescription,
		Notes:                o.Notes,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for i, item := range o.Items {
		doc.Items[i] = orderItemDocument{
			ProductID: docID(item.ProductID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}
	}
	if p := o.Prescription; p != nil {
		pd := prescriptionDocument(*p)
		if pd.MatchedKeywords == nil {
			pd.MatchedKeywords = []string{}
		}
		doc.Prescription = &pd
	}
	for _, img := range o.PrescriptionImages {
		doc.PrescriptionImages = append(doc.PrescriptionImages, prescriptionImageDocument(img))
	}
	return doc
}

func (d orderDocument) toDomain() domain.Order {
	o := domain.Order{
		ID:                   idString(d.ID),
		OrderNumber:          d.OrderNumber,
		UserID:               readUserRef(d.UserID),
		Items:                make([]domain.OrderItem, len(d.Items)),
		Subtotal:             d.Subtotal,
		ShippingCost:         d.ShippingCost,
		TotalAmount:          d.TotalAmount,
		Status:               domain.OrderStatus(d.Status),
		PaymentStatus:        domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:        d.PaymentMethod,
		ShippingAddress:      domain.ShippingAddress(d.ShippingAddress),
		RequiresPrescription: d.RequiresPrescription,
		Notes:                d.Notes,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
	}
	for i, item := range d.Items {
		o.Items[i] = domain.OrderItem{
			ProductID: idString(item.ProductID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		}
	}
	if d.Prescription != nil {
		p := domain.Prescription(*d.Prescription)
		if !p.UploadedAt.IsZero() {
			p.UploadedAt = p.UploadedAt.UTC()
		}
		o.Prescription = &p
	}
	for _, img := range d.PrescriptionImages {
		converted := domain.PrescriptionImage(img)
		converted.UploadedAt = converted.UploadedAt.UTC()
		o.PrescriptionImages = append(o.PrescriptionImages, converted)
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = domain.PaymentStatusPending
	}
	return o
}
