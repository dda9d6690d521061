package handlers

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"skydrive/internal/middleware"
	"skydrive/internal/pkg"
	"skydrive/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DownloadHandler streams downloads for entry selections
type DownloadHandler struct {
	archive *services.ArchiveService
	logger  *pkg.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(archive *services.ArchiveService, logger *pkg.Logger) *DownloadHandler {
	return &DownloadHandler{
		archive: archive,
		logger:  logger,
	}
}

// Download streams a selection from the caller's own tree: a direct
// stream for a single file or note, a zip archive otherwise. all=1 zips
// the children of the folder named by parentId (the root when absent).
func (h *DownloadHandler) Download(c *gin.Context) {
	h.serve(c, h.archive.BuildDownload)
}

// DownloadSharedWithMe streams a selection from the entries granted to
// the caller
func (h *DownloadHandler) DownloadSharedWithMe(c *gin.Context) {
	h.serve(c, h.archive.BuildSharedWithMe)
}

// DownloadSharedByMe streams a selection from the caller's entries that
// carry share grants
func (h *DownloadHandler) DownloadSharedByMe(c *gin.Context) {
	h.serve(c, h.archive.BuildSharedByMe)
}

// serve parses the query selection, builds the download and streams it
func (h *DownloadHandler) serve(c *gin.Context, build func(context.Context, primitive.ObjectID, services.Selection) (*services.Download, error)) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	sel, err := parseSelection(c)
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid entry ID")
		return
	}

	download, err := build(c.Request.Context(), user.ID, sel)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}
	defer download.Close()

	streamAttachment(c, download, h.logger)
}

// streamAttachment writes a download to the response as an attachment
func streamAttachment(c *gin.Context, download *services.Download, logger *pkg.Logger) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Name))
	c.Header("Content-Type", download.Mime)
	if download.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(download.Size, 10))
	}

	if _, err := io.Copy(c.Writer, download.Body); err != nil {
		logger.Warn("download stream interrupted", map[string]interface{}{
			"name":  download.Name,
			"error": err.Error(),
		})
	}
}

// parseSelection reads the all, parentId and ids query parameters into a
// selection
func parseSelection(c *gin.Context) (services.Selection, error) {
	sel := services.Selection{All: c.Query("all") == "1"}

	if idStr := c.Query("parentId"); idStr != "" {
		id, err := primitive.ObjectIDFromHex(idStr)
		if err != nil {
			return sel, err
		}
		sel.ParentID = &id
	}

	ids, err := parseIDList(c.Query("ids"))
	if err != nil {
		return sel, err
	}
	sel.IDs = ids

	return sel, nil
}

// parseIDList splits a comma-separated id list into object ids
func parseIDList(raw string) ([]primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]primitive.ObjectID, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
