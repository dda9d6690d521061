package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the owner identity entries are scoped by. Authentication and
// session management happen outside this service; only the attributes the
// tree and sharing operations need are kept here.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name" validate:"required,min=1,max=100"`
	Email     string             `bson:"email" json:"email" validate:"required,email"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
