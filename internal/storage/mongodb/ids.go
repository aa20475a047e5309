package mongodb

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vladislavdragonenkov/pharmacy/internal/domain"
)

// docID переводит строковый идентификатор в значение _id: hex ObjectID
// хранится как ObjectID, остальные строки как есть.
func docID(id string) any {
	id = strings.TrimSpace(id)
	if oid, err := primitive.ObjectIDFromHex(id); err == nil && !oid.IsZero() {
		return oid
	}
	return id
}

// docIDs переводит список идентификаторов для фильтра $in.
func docIDs(ids []string) bson.A {
	out := make(bson.A, 0, len(ids))
	for _, id := range ids {
		out = append(out, docID(id))
	}
	return out
}

// idString читает _id, сохранённый как ObjectID или строка.
func idString(raw any) string {
	switch v := raw.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return ""
	}
}

// userRef - значение userId для записи: всегда ObjectID, если ссылка корректна.
func userRef(userID string) any {
	if oid, err := domain.UserObjectID(userID); err == nil {
		return oid
	}
	return userID
}

// readUserRef читает userId в любом историческом виде.
func readUserRef(raw any) string {
	if id, err := domain.NormalizeUserReference(raw); err == nil {
		return id
	}
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// userFilter находит документы пользователя независимо от того,
// хранится userId как ObjectID или строкой.
func userFilter(userID string) bson.M {
	oid, err := domain.UserObjectID(userID)
	if err != nil {
		return bson.M{"userId": userID}
	}
	return bson.M{"userId": bson.M{"$in": bson.A{oid, oid.Hex()}}}
}
