package services

import (
	"context"
	"io"
	"strings"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteService manages notes: entries whose content lives inline on the
// record instead of in the object store.
type NoteService struct {
	entryRepo repository.EntryRepository
	tree      *TreeService
	logger    *pkg.Logger
}

// NewNoteService creates a new note service
func NewNoteService(entryRepo repository.EntryRepository, tree *TreeService, logger *pkg.Logger) *NoteService {
	return &NoteService{
		entryRepo: entryRepo,
		tree:      tree,
		logger:    logger,
	}
}

// NoteRequest carries a note's name and content. Content may be empty.
type NoteRequest struct {
	Name     string              `json:"name" validate:"required,min=1,max=255"`
	Content  string              `json:"content"`
	ParentID *primitive.ObjectID `json:"parentId,omitempty"`
}

// CreateNote creates a note under the given parent (root when nil). The
// note's size tracks its content length and its mime type is fixed.
func (s *NoteService) CreateNote(ctx context.Context, owner *models.User, req *NoteRequest) (*models.Entry, error) {
	if err := pkg.DefaultValidator.Validate(req); err != nil {
		return nil, pkg.ErrValidationFailed.WithDetails(map[string]interface{}{
			"errors": err,
		})
	}

	parent, err := s.tree.resolveParent(ctx, owner, req.ParentID)
	if err != nil {
		return nil, err
	}

	note := &models.Entry{
		Name:        req.Name,
		IsFolder:    false,
		Type:        models.EntryTypeNote,
		Mime:        "text/plain",
		Size:        int64(len(req.Content)),
		NoteContent: req.Content,
	}

	if err := s.tree.appendChild(ctx, parent, note); err != nil {
		return nil, err
	}

	return note, nil
}

// UpdateNote replaces a note's name and content
func (s *NoteService) UpdateNote(ctx context.Context, ownerID, noteID primitive.ObjectID, name, content string) (*models.Entry, error) {
	note, err := s.entryRepo.GetByID(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	if !note.IsNote() {
		return nil, pkg.ErrNotANote
	}

	updates := map[string]interface{}{
		"name":         name,
		"note_content": content,
		"size":         int64(len(content)),
	}
	if err := s.entryRepo.Update(ctx, note.ID, updates); err != nil {
		return nil, err
	}

	note.Name = name
	note.NoteContent = content
	note.Size = int64(len(content))

	return note, nil
}

// GetNote loads a note's record with inline content
func (s *NoteService) GetNote(ctx context.Context, ownerID, noteID primitive.ObjectID) (*models.Entry, error) {
	note, err := s.entryRepo.GetByID(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	if !note.IsNote() {
		return nil, pkg.ErrNotANote
	}

	return note, nil
}

// DeleteNote moves a note to the trash
func (s *NoteService) DeleteNote(ctx context.Context, ownerID, noteID primitive.ObjectID) error {
	note, err := s.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return err
	}

	return s.entryRepo.SoftDelete(ctx, note.ID)
}

// DownloadNote streams a note's inline content as a text file
func (s *NoteService) DownloadNote(ctx context.Context, ownerID, noteID primitive.ObjectID) (*Download, error) {
	note, err := s.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	return &Download{
		Name: note.Name + ".txt",
		Mime: "text/plain",
		Size: int64(len(note.NoteContent)),
		Body: io.NopCloser(strings.NewReader(note.NoteContent)),
	}, nil
}
