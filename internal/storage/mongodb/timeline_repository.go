package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

type timelineDocument struct {
	ID       string    `bson:"_id"`
	OrderID  string    `bson:"orderId"`
	Type     string    `bson:"type"`
	Reason   string    `bson:"reason,omitempty"`
	Occurred time.Time `bson:"occurred"`
}

type timelineRepository struct {
	events *mongo.Collection
}

// NewTimelineRepository создаёт MongoDB-реализацию истории заказов.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{events: store.collection(collectionTimeline)}
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	doc := timelineDocument{
		ID:       event.ID,
		OrderID:  event.OrderID,
		Type:     event.Type,
		Reason:   event.Reason,
		Occurred: event.Occurred,
	}
	if _, err := r.events.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}
	return nil
}

func (r *timelineRepository) List(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := r.events.Find(ctx,
		bson.M{"orderId": orderID},
		options.Find().SetSort(bson.D{{Key: "occurred", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []timelineDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode timeline events: %w", err)
	}
	events := make([]domain.TimelineEvent, len(docs))
	for i, doc := range docs {
		events[i] = domain.TimelineEvent{
			ID:       doc.ID,
			OrderID:  doc.OrderID,
			Type:     doc.Type,
			Reason:   doc.Reason,
			Occurred: doc.Occurred.UTC(),
		}
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
