package handlers

import (
	"skydrive/internal/middleware"
	"skydrive/internal/pkg"

	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers behind one router
type Handlers struct {
	Files    *FileHandler
	Download *DownloadHandler
	Sharing  *SharingHandler
	Notes    *NoteHandler
}

// NewRouter builds the gin engine with middleware and all routes mounted
func NewRouter(h *Handlers, identity *middleware.IdentityMiddleware, logger *pkg.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogging(logger))
	router.Use(middleware.CORS(nil))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(identity.RequireUser())
	{
		api.GET("/drive", h.Files.ListFolder)
		api.POST("/folders", h.Files.CreateFolder)
		api.POST("/files", h.Files.Upload)
		api.GET("/download", h.Download.Download)
		api.GET("/download/shared-with-me", h.Download.DownloadSharedWithMe)
		api.GET("/download/shared-by-me", h.Download.DownloadSharedByMe)

		api.GET("/entries/:id/preview", h.Files.Preview)
		api.POST("/entries/:id/star", h.Sharing.ToggleStar)

		api.GET("/trash", h.Files.ListTrash)
		api.POST("/trash", h.Files.Trash)
		api.POST("/trash/restore", h.Files.Restore)
		api.DELETE("/trash", h.Files.Purge)

		api.POST("/share", h.Sharing.Share)
		api.GET("/shared-with-me", h.Sharing.SharedWithMe)
		api.GET("/shared-by-me", h.Sharing.SharedByMe)

		api.POST("/notes", h.Notes.Create)
		api.GET("/notes/:id", h.Notes.Get)
		api.PUT("/notes/:id", h.Notes.Update)
		api.DELETE("/notes/:id", h.Notes.Delete)
		api.GET("/notes/:id/download", h.Notes.Download)
	}

	return router
}
