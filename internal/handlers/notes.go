package handlers

import (
	"net/http"

	"skydrive/internal/middleware"
	"skydrive/internal/pkg"
	"skydrive/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteHandler handles note creation, editing, retrieval, deletion and
// download
type NoteHandler struct {
	notes  *services.NoteService
	logger *pkg.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes *services.NoteService, logger *pkg.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// Create creates a note under the given parent
func (h *NoteHandler) Create(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	note, err := h.notes.CreateNote(c.Request.Context(), user, &req)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.CreatedResponse(c, "Note created successfully", note)
}

// Update replaces a note's name and content
func (h *NoteHandler) Update(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	noteID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid note ID")
		return
	}

	var req services.NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	note, err := h.notes.UpdateNote(c.Request.Context(), user.ID, noteID, req.Name, req.Content)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Note updated successfully", note)
}

// Get returns a note with its inline content
func (h *NoteHandler) Get(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	noteID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid note ID")
		return
	}

	note, err := h.notes.GetNote(c.Request.Context(), user.ID, noteID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Note retrieved successfully", gin.H{
		"id":      note.ID.Hex(),
		"name":    note.Name,
		"content": note.NoteContent,
	})
}

// Delete moves a note to the trash
func (h *NoteHandler) Delete(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	noteID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid note ID")
		return
	}

	if err := h.notes.DeleteNote(c.Request.Context(), user.ID, noteID); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Note moved to trash", nil)
}

// Download streams a note's content as a text file
func (h *NoteHandler) Download(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	noteID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid note ID")
		return
	}

	download, err := h.notes.DownloadNote(c.Request.Context(), user.ID, noteID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}
	defer download.Close()

	streamAttachment(c, download, h.logger)
}
