package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Share grants a user read access to an entry. Rows are created by the
// share operation, never updated, and removed only when the entry is
// purged. At most one row exists per (entry, grantee) pair.
type Share struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntryID   primitive.ObjectID `bson:"entry_id" json:"entryId"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
