package controllers

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/utils"
)

// ProfileController serves the profile page and its edit form.
type ProfileController struct {
	db        *gorm.DB
	avatarDir string
}

func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db, avatarDir: filepath.Join("static", "avatars")}
}

const maxBioLength = 500

var allowedAvatarExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Show returns the current user's profile.
func (p *ProfileController) Show(ctx *gin.Context) {
	user := currentUser(ctx, p.db)
	if user == nil {
		utils.LoginRedirect(ctx, 40105)
		return
	}
	var profile models.Profile
	if err := p.db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		utils.Error(ctx, 500, 50030, "failed to load profile")
		return
	}
	utils.Success(ctx, gin.H{
		"username": user.Username,
		"email":    user.Email,
		"bio":      profile.Bio,
		"avatar":   profile.AvatarURL(),
	})
}

// Update changes the bio and, when a file is attached, the avatar image.
// Uploads get a random filename so they cannot collide or be guessed.
func (p *ProfileController) Update(ctx *gin.Context) {
	user := currentUser(ctx, p.db)
	if user == nil {
		utils.LoginRedirect(ctx, 40105)
		return
	}
	var profile models.Profile
	if err := p.db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		utils.Error(ctx, 500, 50030, "failed to load profile")
		return
	}

	bio := strings.TrimSpace(ctx.PostForm("bio"))
	if len(bio) > maxBioLength {
		utils.Error(ctx, 400, 40030, "bio must be at most 500 characters")
		return
	}
	updates := map[string]interface{}{"bio": utils.Sanitize(bio)}

	if file, err := ctx.FormFile("avatar"); err == nil {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedAvatarExts[ext] {
			utils.Error(ctx, 400, 40031, "unsupported avatar file type")
			return
		}
		if err := os.MkdirAll(p.avatarDir, 0o755); err != nil {
			utils.Error(ctx, 500, 50031, "failed to store avatar")
			return
		}
		name := uuid.NewString() + ext
		if err := ctx.SaveUploadedFile(file, filepath.Join(p.avatarDir, name)); err != nil {
			utils.Error(ctx, 500, 50031, "failed to store avatar")
			return
		}
		updates["avatar"] = "/static/avatars/" + name
	}

	if err := p.db.Model(&profile).Updates(updates).Error; err != nil {
		utils.Error(ctx, 500, 50032, "failed to update profile")
		return
	}
	utils.Flash(ctx, "Your profile has been updated!", "/accounts/profile", nil)
}
