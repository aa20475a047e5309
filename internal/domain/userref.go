package domain

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewEntityID генерирует идентификатор документа в формате ObjectID (hex).
func NewEntityID() string {
	return primitive.NewObjectID().Hex()
}

// NormalizeUserReference приводит ссылку на пользователя к hex-строке ObjectID.
// Исторически userId хранился и как ObjectID, и как обычная строка;
// все читатели проходят через эту функцию.
func NormalizeUserReference(raw any) (string, error) {
	switch v := raw.(type) {
	case primitive.ObjectID:
		if v.IsZero() {
			return "", ErrInvalidUserReference
		}
		return v.Hex(), nil
	case *primitive.ObjectID:
		if v == nil || v.IsZero() {
			return "", ErrInvalidUserReference
		}
		return v.Hex(), nil
	case string:
		oid, err := UserObjectID(v)
		if err != nil {
			return "", err
		}
		return oid.Hex(), nil
	default:
		return "", ErrInvalidUserReference
	}
}

// UserObjectID разбирает hex-строку в ObjectID.
func UserObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil || oid.IsZero() {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidUserReference, id)
	}
	return oid, nil
}

// CanonicalUserID приводит идентификатор к hex ObjectID в нижнем регистре.
// Строка, не являющаяся ObjectID, возвращается без пробелов по краям.
func CanonicalUserID(id string) string {
	if normalized, err := NormalizeUserReference(id); err == nil {
		return normalized
	}
	return strings.TrimSpace(id)
}
