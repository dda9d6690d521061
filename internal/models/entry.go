package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EntryType distinguishes regular files from inline notes. Folders are
// flagged separately via IsFolder, matching the single-entity tree design.
type EntryType string

const (
	EntryTypeFile EntryType = "file"
	EntryTypeNote EntryType = "note"
)

// Entry is a node in a per-owner file tree: a folder, an uploaded file, or
// a note whose content lives inline in NoteContent instead of blob storage.
type Entry struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name" validate:"required,min=1,max=255"`
	IsFolder    bool                `bson:"is_folder" json:"isFolder"`
	Type        EntryType           `bson:"type" json:"type"`
	Mime        string              `bson:"mime" json:"mime"`
	Size        int64               `bson:"size" json:"size"`
	StoragePath string              `bson:"storage_path" json:"-"`
	NoteContent string              `bson:"note_content,omitempty" json:"-"`
	Path        string              `bson:"path" json:"path"`
	ParentID    *primitive.ObjectID `bson:"parent_id,omitempty" json:"parentId,omitempty"`
	OwnerID     primitive.ObjectID  `bson:"owner_id" json:"ownerId"`
	CreatedAt   time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updatedAt"`
	DeletedAt   *time.Time          `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
}

// IsRoot checks if the entry is the owner's root folder
func (e *Entry) IsRoot() bool {
	return e.ParentID == nil
}

// IsNote checks if the entry stores its content inline
func (e *Entry) IsNote() bool {
	return e.Type == EntryTypeNote
}

// IsTrashed checks if the entry is soft deleted
func (e *Entry) IsTrashed() bool {
	return e.DeletedAt != nil
}

// IsOwnedBy checks if the entry is owned by the provided user id
func (e *Entry) IsOwnedBy(userID primitive.ObjectID) bool {
	return e.OwnerID == userID
}

// HasBlob reports whether the entry has backing content in the object
// store. Folders have no content and notes keep theirs inline.
func (e *Entry) HasBlob() bool {
	return !e.IsFolder && !e.IsNote() && e.StoragePath != ""
}
