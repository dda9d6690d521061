package handlers

import (
	"context"
	"net/http"
	"path"
	"strings"

	"skydrive/internal/middleware"
	"skydrive/internal/pkg"
	"skydrive/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileHandler handles the drive surface: listings, folder creation,
// uploads, trash operations and previews.
type FileHandler struct {
	tree      *services.TreeService
	lifecycle *services.LifecycleService
	view      *services.ViewService
}

// NewFileHandler creates a new file handler
func NewFileHandler(
	tree *services.TreeService,
	lifecycle *services.LifecycleService,
	view *services.ViewService,
) *FileHandler {
	return &FileHandler{
		tree:      tree,
		lifecycle: lifecycle,
		view:      view,
	}
}

// folderPage is one rendered listing page: the current folder, its crumb
// trail and its projected contents
type folderPage struct {
	Folder  *services.EntryView   `json:"folder"`
	Crumbs  []services.Crumb      `json:"crumbs"`
	Entries []*services.EntryView `json:"entries"`
}

// ListFolder renders one page of a folder listing. The folder is addressed
// by path; the empty path is the root. A search query widens the scope to
// the whole tree, favourites=1 narrows it to starred entries.
func (h *FileHandler) ListFolder(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	folderPath := strings.Trim(c.Query("path"), "/")
	folder, err := h.tree.ResolveByPath(c.Request.Context(), user, folderPath)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	params := pkg.NewPaginationParams(c)
	opts := services.ListOptions{
		Search:         c.Query("search"),
		FavouritesOnly: c.Query("favourites") == "1",
	}

	entries, total, err := h.tree.ListFolder(c.Request.Context(), user.ID, folder, opts, params)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	views, err := h.view.ProjectEntries(c.Request.Context(), user.ID, entries)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	folderView, err := h.view.ProjectEntry(c.Request.Context(), user.ID, folder)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	ancestors, err := h.tree.Ancestors(c.Request.Context(), folder)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	page := &folderPage{
		Folder:  folderView,
		Crumbs:  h.view.Breadcrumbs(ancestors, folder),
		Entries: views,
	}

	result := pkg.NewPaginationResult(page, total, params)
	pkg.PaginatedResponse(c, "Folder retrieved successfully", result)
}

// CreateFolder creates a folder under the given parent
func (h *FileHandler) CreateFolder(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var req services.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	folder, err := h.tree.CreateFolder(c.Request.Context(), user, &req)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.CreatedResponse(c, "Folder created successfully", folder)
}

// Upload stores a multipart upload batch. Each part's filename may carry a
// relative path; the directories in those paths are recreated under the
// target folder.
func (h *FileHandler) Upload(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		pkg.BadRequestResponse(c, "Invalid multipart form")
		return
	}

	parts := form.File["files"]
	if len(parts) == 0 {
		pkg.HandleError(c, pkg.ErrEmptySelection)
		return
	}

	var parentID *primitive.ObjectID
	if idStr := c.PostForm("parentId"); idStr != "" {
		id, err := primitive.ObjectIDFromHex(idStr)
		if err != nil {
			pkg.BadRequestResponse(c, "Invalid parent ID")
			return
		}
		parentID = &id
	}

	uploads := make(map[string]*services.UploadNode)
	for _, part := range parts {
		reader, err := part.Open()
		if err != nil {
			pkg.BadRequestResponse(c, "Unreadable file part")
			return
		}
		defer reader.Close()

		name := pkg.Files.SanitizeFilename(path.Base(part.Filename))
		upload := &services.FileUpload{
			Name:    name,
			Mime:    partContentType(part.Header.Get("Content-Type"), name),
			Size:    part.Size,
			Content: reader,
		}

		relPath := strings.Trim(path.Clean(part.Filename), "/")
		insertUpload(uploads, strings.Split(relPath, "/"), upload)
	}

	if err := h.tree.StoreFiles(c.Request.Context(), user, parentID, nil, uploads); err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusCreated, "Files uploaded successfully", nil)
}

// Trash moves the selected live entries to the trash
func (h *FileHandler) Trash(c *gin.Context) {
	h.bulk(c, h.lifecycle.MoveToTrash, "Moved to trash")
}

// Restore returns the selected trashed entries to the tree
func (h *FileHandler) Restore(c *gin.Context) {
	h.bulk(c, h.lifecycle.Restore, "Restored from trash")
}

// Purge permanently deletes the selected trashed entries
func (h *FileHandler) Purge(c *gin.Context) {
	h.bulk(c, h.lifecycle.Purge, "Permanently deleted")
}

// ListTrash renders one page of the trash listing
func (h *FileHandler) ListTrash(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	params := pkg.NewPaginationParams(c)

	entries, total, err := h.lifecycle.ListTrash(c.Request.Context(), user.ID, c.Query("search"), params)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	views, err := h.view.ProjectEntries(c.Request.Context(), user.ID, entries)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	result := pkg.NewPaginationResult(views, total, params)
	pkg.PaginatedResponse(c, "Trash retrieved successfully", result)
}

// Preview returns inline content for a note or a short-lived URL for a
// stored file
func (h *FileHandler) Preview(c *gin.Context) {
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

	preview, err := h.tree.Preview(c.Request.Context(), user.ID, entryID)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, "Preview generated successfully", preview)
}

// bulk parses a selection body and runs one lifecycle operation on it
func (h *FileHandler) bulk(c *gin.Context, op func(context.Context, primitive.ObjectID, services.Selection) (*services.BulkResult, error), message string) {
	user, ok := middleware.GetUser(c)
	if !ok {
		pkg.UnauthorizedResponse(c, "Authentication required")
		return
	}

	var sel services.Selection
	if err := c.ShouldBindJSON(&sel); err != nil {
		pkg.BadRequestResponse(c, "Invalid request body")
		return
	}

	result, err := op(c.Request.Context(), user.ID, sel)
	if err != nil {
		pkg.HandleError(c, err)
		return
	}

	pkg.SuccessResponse(c, http.StatusOK, message, result)
}

// insertUpload places an upload into the node tree, creating folder nodes
// for every path segment above the leaf
func insertUpload(tree map[string]*services.UploadNode, segments []string, upload *services.FileUpload) {
	if len(segments) == 1 {
		tree[upload.Name] = &services.UploadNode{File: upload}
		return
	}

	dir := segments[0]
	node, ok := tree[dir]
	if !ok || node.Children == nil {
		node = &services.UploadNode{Children: make(map[string]*services.UploadNode)}
		tree[dir] = node
	}
	insertUpload(node.Children, segments[1:], upload)
}

// partContentType falls back to extension sniffing when the client sent no
// content type
func partContentType(header, name string) string {
	if header != "" {
		return header
	}
	return pkg.Files.GetMimeType(name)
}
