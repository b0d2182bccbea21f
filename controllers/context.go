package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/middleware"
	"github.com/quillhub/quillhub/models"
)

// contextUserID returns the authenticated user ID stored by the auth
// middleware, or false when the request is anonymous.
func contextUserID(ctx *gin.Context) (uint, bool) {
	v, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// currentUser loads the full user record for the authenticated request.
// Returns nil for anonymous requests or when the account no longer exists.
func currentUser(ctx *gin.Context, db *gorm.DB) *models.User {
	id, ok := contextUserID(ctx)
	if !ok {
		return nil
	}
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil
	}
	return &user
}
