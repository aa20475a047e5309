package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type cartItemDocument struct {
	ProductID any    `bson:"product"`
	Name      string `bson:"name"`
	Price     int64  `bson:"price"`
	Quantity  int32  `bson:"quantity"`
}

// cartDocument - одна корзина на пользователя.
type cartDocument struct {
	UserID    any                `bson:"userId"`
	Items     []cartItemDocument `bson:"items"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type cartRepository struct {
	carts *mongo.Collection
}

// NewCartRepository создаёт MongoDB-реализацию CartRepository.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{carts: store.collection(collectionCarts)}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var doc cartDocument
	if err := r.carts.FindOne(ctx, userFilter(userID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Cart{UserID: userID}, nil
		}
		return domain.Cart{}, fmt.Errorf("find cart: %w", err)
	}

	cart := domain.Cart{UserID: userID, Items: make([]domain.CartItem, len(doc.Items)), UpdatedAt: doc.UpdatedAt.UTC()}
	for i, item := range doc.Items {
		cart.Items[i] = domain.CartItem{
			ProductID: idString(item.ProductID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}
	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	doc := cartDocument{
		UserID:    userRef(cart.UserID),
		Items:     make([]cartItemDocument, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt,
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	for i, item := range cart.Items {
		doc.Items[i] = cartItemDocument{
			ProductID: docID(item.ProductID),
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	if _, err := r.carts.ReplaceOne(ctx, userFilter(cart.UserID), doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if _, err := r.carts.DeleteMany(ctx, userFilter(userID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ domain.CartRepository = (*cartRepository)(nil)
