package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type paymentDocument struct {
	ID                    string    `bson:"_id"`
	OrderID               any       `bson:"orderId"`
	UserID                any       `bson:"userId"`
	TransactionID         string    `bson:"transactionId"`
	ExternalTransactionID string    `bson:"externalTransactionId,omitempty"`
	Method                string    `bson:"paymentMethod"`
	PhoneNumber           string    `bson:"phoneNumber,omitempty"`
	Amount                int64     `bson:"amount"`
	Status                string    `bson:"status"`
	Message               string    `bson:"message,omitempty"`
	CreatedAt             time.Time `bson:"createdAt"`
	UpdatedAt             time.Time `bson:"updatedAt"`
}

func paymentToDocument(p domain.Payment) paymentDocument {
	return paymentDocument{
		ID:                    p.ID,
		OrderID:               docID(p.OrderID),
		UserID:                userRef(p.UserID),
		TransactionID:         p.TransactionID,
		ExternalTransactionID: p.ExternalTransactionID,
		Method:                p.Method,
		PhoneNumber:           p.PhoneNumber,
		Amount:                p.Amount,
		Status:                string(p.Status),
		Message:               p.Message,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (d paymentDocument) toDomain() domain.Payment {
	return domain.Payment{
		ID:                    d.ID,
		OrderID:               idString(d.OrderID),
		UserID:                readUserRef(d.UserID),
		TransactionID:         d.TransactionID,
		ExternalTransactionID: d.ExternalTransactionID,
		Method:                d.Method,
		PhoneNumber:           d.PhoneNumber,
		Amount:                d.Amount,
		Status:                domain.TransactionStatus(d.Status),
		Message:               d.Message,
		CreatedAt:             d.CreatedAt.UTC(),
		UpdatedAt:             d.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	payments *mongo.Collection
}

// NewPaymentRepository создаёт MongoDB-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{payments: store.collection(collectionPayments)}
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.payments.InsertOne(ctx, paymentToDocument(payment)); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (domain.Payment, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc paymentDocument
	if err := r.payments.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("find payment: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *paymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.payments.ReplaceOne(ctx, bson.M{"_id": payment.ID}, paymentToDocument(payment))
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
