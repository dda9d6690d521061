package middleware

import (
	"errors"

	"skydrive/internal/models"
	"skydrive/internal/pkg"
	"skydrive/internal/repository"

	"github.com/gin-gonic/gin"
)

// IdentityMiddleware resolves the acting user. Authentication happens at
// the gateway; requests arrive here already verified, carrying the
// subject's email in X-User-Email. Unknown subjects are provisioned on
// first sight.
type IdentityMiddleware struct {
	userRepo repository.UserRepository
	logger   *pkg.Logger
}

// NewIdentityMiddleware creates a new identity middleware
func NewIdentityMiddleware(userRepo repository.UserRepository, logger *pkg.Logger) *IdentityMiddleware {
	return &IdentityMiddleware{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RequireUser loads the acting user into the request context
func (m *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader("X-User-Email")
		if email == "" {
			pkg.UnauthorizedResponse(c, "Missing identity")
			c.Abort()
			return
		}

		user, err := m.userRepo.GetByEmail(c.Request.Context(), email)
		if err != nil {
			if !errors.Is(err, pkg.ErrUserNotFound) {
				pkg.HandleError(c, err)
				c.Abort()
				return
			}

			user = &models.User{
				Name:  c.GetHeader("X-User-Name"),
				Email: email,
			}
			if user.Name == "" {
				user.Name = email
			}
			if err := m.userRepo.Create(c.Request.Context(), user); err != nil {
				// Lost a provisioning race; the row exists now
				user, err = m.userRepo.GetByEmail(c.Request.Context(), email)
				if err != nil {
					pkg.HandleError(c, err)
					c.Abort()
					return
				}
			}
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// GetUser extracts the acting user from the request context
func GetUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
