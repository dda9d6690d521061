package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Star marks an entry as a favourite of a user. Toggled: inserted when
// absent, deleted when present.
type Star struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntryID   primitive.ObjectID `bson:"entry_id" json:"entryId"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
