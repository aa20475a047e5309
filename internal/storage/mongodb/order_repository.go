package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type orderRepository struct {
	orders *mongo.Collection
}

// NewOrderRepository создаёт MongoDB-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{orders: store.collection(collectionOrders)}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.orders.InsertOne(ctx, orderToDocument(order)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc orderDocument
	if err := r.orders.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := bson.M{}
	if filter.UserID != "" {
		query = userFilter(filter.UserID)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	total, err := r.orders.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	if total == 0 {
		return []domain.Order{}, 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(filter.Offset()))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.orders.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]domain.Order, 0, filter.Limit)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("decode order: %w", err)
		}
		result = append(result, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return result, total, nil
}

// UpdateStatus - compare-and-set: документ меняется, только если его статус всё ещё from.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, from domain.OrderStatus, upd domain.StatusUpdate) (domain.Order, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{
		"status":    string(upd.Status),
		"updatedAt": upd.UpdatedAt,
	}
	if upd.PaymentStatus != "" {
		set["paymentStatus"] = string(upd.PaymentStatus)
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}

	var doc orderDocument
	err := r.orders.FindOneAndUpdate(ctx,
		bson.M{"_id": docID(id), "status": string(from)},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	n, err := r.orders.CountDocuments(ctx, bson.M{"_id": docID(id)})
	if err != nil {
		return domain.Order{}, fmt.Errorf("check order exists: %w", err)
	}
	if n == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return domain.Order{}, domain.ErrOrderStatusConflict
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.orders.UpdateOne(ctx,
		bson.M{"_id": docID(id)},
		bson.M{"$set": bson.M{"paymentStatus": string(status), "updatedAt": at}},
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
