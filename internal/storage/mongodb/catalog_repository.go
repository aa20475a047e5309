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

// productDocument - поля товара, которые читает оформление заказа.
// Отсутствующий isActive означает активный товар.
type productDocument struct {
	ID                   any       `bson:"_id"`
	Name                 string    `bson:"name"`
	Price                int64     `bson:"price"`
	Stock                int32     `bson:"stock"`
	IsActive             *bool     `bson:"isActive,omitempty"`
	PrescriptionRequired bool      `bson:"prescriptionRequired"`
	UpdatedAt            time.Time `bson:"updatedAt,omitempty"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:                   idString(d.ID),
		Name:                 d.Name,
		Price:                d.Price,
		Stock:                d.Stock,
		IsActive:             d.IsActive == nil || *d.IsActive,
		PrescriptionRequired: d.PrescriptionRequired,
		UpdatedAt:            d.UpdatedAt.UTC(),
	}
}

type productRepository struct {
	products *mongo.Collection
}

// NewProductRepository создаёт MongoDB-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{products: store.collection(collectionProducts)}
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc productDocument
	if err := r.products.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("find product: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *productRepository) GetMany(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.products.Find(ctx, bson.M{"_id": bson.M{"$in": docIDs(ids)}})
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	result := make([]domain.Product, len(docs))
	for i, doc := range docs {
		result[i] = doc.toDomain()
	}
	return result, nil
}

// DecrementStock списывает остаток условным $inc: документ совпадает,
// только пока stock >= qty, поэтому параллельные заказы не уводят остаток в минус.
func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int32) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.products.UpdateOne(ctx,
		bson.M{"_id": docID(id), "stock": bson.M{"$gte": qty}},
		bson.M{
			"$inc": bson.M{"stock": -qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.products.CountDocuments(ctx, bson.M{"_id": docID(id)})
	if err != nil {
		return fmt.Errorf("check product exists: %w", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *productRepository) IncrementStock(ctx context.Context, id string, qty int32) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.products.UpdateOne(ctx,
		bson.M{"_id": docID(id)},
		bson.M{
			"$inc": bson.M{"stock": qty},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)

type userDocument struct {
	ID    any    `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone,omitempty"`
	Role  string `bson:"role"`
}

func (d userDocument) toDomain() domain.User {
	role := d.Role
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return domain.User{ID: idString(d.ID), Name: d.Name, Email: d.Email, Phone: d.Phone, Role: role}
}

type userRepository struct {
	users *mongo.Collection
}

// NewUserRepository создаёт MongoDB-реализацию UserRepository.
func NewUserRepository(store *Store) domain.UserRepository {
	return &userRepository{users: store.collection(collectionUsers)}
}

func (r *userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc userDocument
	if err := r.users.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *userRepository) GetMany(ctx context.Context, ids []string) (map[string]domain.User, error) {
	result := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": docIDs(ids)}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		u := doc.toDomain()
		result[u.ID] = u
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return result, nil
}

var _ domain.UserRepository = (*userRepository)(nil)
