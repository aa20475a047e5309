package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

func TestOrderDocument_LegacyUserReference(t *testing.T) {
	oid := primitive.NewObjectID()

	tests := []struct {
		name   string
		userID any
		want   string
	}{
		{name: "object id", userID: oid, want: oid.Hex()},
		{name: "hex string", userID: oid.Hex(), want: oid.Hex()},
		{name: "plain string", userID: "guest-7", want: "guest-7"},
		{name: "missing", userID: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{
				"_id":         primitive.NewObjectID(),
				"orderNumber": "ORD-1-1",
				"userId":      tt.userID,
				"items":       bson.A{},
				"status":      "pending",
			})
			require.NoError(t, err)

			var doc orderDocument
			require.NoError(t, bson.Unmarshal(raw, &doc))
			order := doc.toDomain()
			require.Equal(t, tt.want, order.UserID)
			require.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
		})
	}
}

func TestOrderDocument_WritesTypedReferences(t *testing.T) {
	userID := domain.NewEntityID()
	order := domain.Order{
		ID:          domain.NewEntityID(),
		OrderNumber: "ORD-1-2",
		UserID:      userID,
		Items:       []domain.OrderItem{domain.NewOrderItem("P1", "Paracétamol", 1200, 2)},
		Prescription: &domain.Prescription{
			ClinicName: "Clinique du Littoral",
			UploadedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	doc := orderToDocument(order)
	require.IsType(t, primitive.ObjectID{}, doc.ID)
	require.IsType(t, primitive.ObjectID{}, doc.UserID)
	require.Equal(t, "P1", doc.Items[0].ProductID)
	require.NotNil(t, doc.Prescription.MatchedKeywords)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded orderDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got := decoded.toDomain()
	require.Equal(t, order.ID, got.ID)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, int64(2400), got.Items[0].Subtotal)
	require.Equal(t, "Clinique du Littoral", got.Prescription.ClinicName)
}

func TestOrderDocument_LegacyPrescriptionImages(t *testing.T) {
	uploaded := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)
	raw, err := bson.Marshal(bson.M{
		"_id":    "legacy-order",
		"userId": primitive.NewObjectID(),
		"prescriptionImages": bson.A{
			bson.M{"url": "/uploads/a.jpg", "size": int64(2048), "uploadedAt": uploaded},
			bson.M{"url": "/uploads/b.png", "size": int64(10), "uploadedAt": uploaded},
		},
		"totalAmount": float64(4400),
	})
	require.NoError(t, err)

	var doc orderDocument
	require.NoError(t, bson.Unmarshal(raw, &doc))
	order := doc.toDomain()
	require.Equal(t, "legacy-order", order.ID)
	require.Nil(t, order.Prescription)
	require.Len(t, order.PrescriptionImages, 2)
	require.Equal(t, "/uploads/a.jpg", order.PrescriptionImages[0].URL)
	require.True(t, order.PrescriptionImages[0].UploadedAt.Equal(uploaded))
	require.Equal(t, int64(4400), order.TotalAmount)
}

func TestProductDocument_MissingIsActiveMeansActive(t *testing.T) {
	inactive := false
	tests := []struct {
		name string
		doc  bson.M
		want bool
	}{
		{name: "missing flag", doc: bson.M{"_id": "P1", "name": "Sirop"}, want: true},
		{name: "explicit true", doc: bson.M{"_id": "P1", "isActive": true}, want: true},
		{name: "explicit false", doc: bson.M{"_id": "P1", "isActive": inactive}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(tt.doc)
			require.NoError(t, err)
			var doc productDocument
			require.NoError(t, bson.Unmarshal(raw, &doc))
			require.Equal(t, tt.want, doc.toDomain().IsActive)
		})
	}
}

func TestUserFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	filter := userFilter(oid.Hex())
	in, ok := filter["userId"].(bson.M)["$in"].(bson.A)
	require.True(t, ok)
	require.Equal(t, bson.A{oid, oid.Hex()}, in)

	require.Equal(t, bson.M{"userId": "guest-7"}, userFilter("guest-7"))
}

func TestDocID(t *testing.T) {
	oid := primitive.NewObjectID()
	require.Equal(t, oid, docID(oid.Hex()))
	require.Equal(t, "P1", docID("P1"))
	require.Equal(t, primitive.NilObjectID.Hex(), docID(primitive.NilObjectID.Hex()))
	require.Equal(t, oid.Hex(), idString(oid))
	require.Equal(t, "", idString(42))
}
