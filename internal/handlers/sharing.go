package handlers

import (
	"context"
	"net/http"

	"skydrive/internal/middleware"
	"skydrive/internal/pkg"
	"skydrive/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharingHandler handles share grants, shared listings and favourites
type SharingHandler struct {
	sharing *services.SharingService
}

// NewSharingHandler creates a new sharing handler
func NewSharingHandler(sharing *services.SharingService) *SharingHandler {
	return &SharingHandler{sharing: sharing}
}

// Share grants a recipient access to the selected entries. The response is
// the same whether or not the recipient exists.
func (h *SharingHandler) Share(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	if err := h.sharing.Share(c.Request.Context(), user, &req); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Shared successfully", nil)
}

// ToggleStar flips the actor's star on an entry
func (h *SharingHandler) ToggleStar(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	entryID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid entry ID")
		return
	}

	starred, err := h.sharing.ToggleStar(c.Request.Context(), user.ID, entryID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Favourite updated", gin.H{"starred": starred})
}

// SharedWithMe lists entries other users granted to the actor
func (h *SharingHandler) SharedWithMe(c *gin.Context) {
	h.sharedListing(c, h.sharing.SharedWithMe)
}

// SharedByMe lists the actor's entries that carry grants
func (h *SharingHandler) SharedByMe(c *gin.Context) {
	h.sharedListing(c, h.sharing.SharedByMe)
}

func (h *SharingHandler) sharedListing(c *gin.Context, list func(ctx context.Context, actorID primitive.ObjectID, search string, params *pkg.PaginationParams) ([]*services.SharedEntry, int64, error)) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := pkg.NewPaginationParams(c)

	entries, total, err := list(c.Request.Context(), user.ID, c.Query("search"), params)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	result := pkg.NewPaginationResult(entries, total, params)
	pkg.PaginatedResponse(c, "Shared entries retrieved successfully", result)
}
