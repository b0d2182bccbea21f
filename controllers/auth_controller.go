package controllers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/middleware"
	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/tasks"
	"github.com/quillhub/quillhub/utils"
)

// AuthController handles registration, activation, login/logout and the
// password change/reset flows.
type AuthController struct {
	db    *gorm.DB
	queue *tasks.Client
}

func NewAuthController(db *gorm.DB, queue *tasks.Client) *AuthController {
	return &AuthController{db: db, queue: queue}
}

type registerRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=64"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type loginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

type passwordChangeRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type passwordResetConfirmRequest struct {
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

const (
	sessionDuration    = 24 * time.Hour
	rememberMeDuration = 30 * 24 * time.Hour
)

// Register creates an inactive account and queues the activation email.
// Logged-in users are sent back to the home page instead.
func (a *AuthController) Register(ctx *gin.Context) {
	if _, ok := contextUserID(ctx); ok {
		utils.Denied(ctx, 40001, "You are already registered.", "/")
		return
	}

	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, 400, 40002, "invalid registration data: "+err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, 400, 40003, "the two password fields did not match")
		return
	}

	var count int64
	a.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		utils.Error(ctx, 400, 40004, "a user with that username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, 500, 50001, "failed to process password")
		return
	}
	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := models.CreateUser(a.db, &user); err != nil {
		utils.Error(ctx, 500, 50002, "failed to create account")
		return
	}

	if err := a.queue.EnqueueActivationEmail(tasks.ActivationEmailPayload{UserID: user.ID}); err != nil {
		utils.Logger.Warn("enqueue activation email failed",
			zap.Uint("user_id", user.ID), zap.Error(err))
	}

	utils.Flash(ctx, "Please check your email to complete the registration.", "/", gin.H{
		"username": user.Username,
	})
}

// Activate finishes registration from the emailed link.
func (a *AuthController) Activate(ctx *gin.Context) {
	uid, err := strconv.ParseUint(ctx.Param("uid"), 10, 32)
	if err != nil {
		utils.Denied(ctx, 40005, "The activation link is invalid!", "/accounts/login")
		return
	}
	tokenUID, err := utils.ParseAccountToken(ctx.Param("token"), utils.TokenPurposeActivate)
	if err != nil || tokenUID != uint(uid) {
		utils.Denied(ctx, 40005, "The activation link is invalid!", "/accounts/login")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(uid)).Error; err != nil {
		utils.Denied(ctx, 40005, "The activation link is invalid!", "/accounts/login")
		return
	}
	if user.IsActive {
		utils.Denied(ctx, 40006, "The account is already active.", "/accounts/login")
		return
	}

	if err := a.db.Model(&user).Update("is_active", true).Error; err != nil {
		utils.Error(ctx, 500, 50003, "failed to activate account")
		return
	}
	utils.Flash(ctx, "Your account has been activated. You can now log in.", "/accounts/login", nil)
}

// Login verifies credentials on an active account and issues a session token.
func (a *AuthController) Login(ctx *gin.Context) {
	if _, ok := contextUserID(ctx); ok {
		utils.Denied(ctx, 40101, "You are already logged in.", "/")
		return
	}

	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, 400, 40102, "invalid login data: "+err.Error())
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, 401, 40103, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, 401, 40103, "invalid username or password")
		return
	}
	if !user.IsActive {
		utils.Denied(ctx, 40104, "Your account is not active! Please check your email.", "/accounts/login")
		return
	}

	duration := sessionDuration
	if req.RememberMe {
		duration = rememberMeDuration
	}
	token, err := utils.GenerateToken(user.ID, user.Username, duration)
	if err != nil {
		utils.Error(ctx, 500, 50004, "failed to issue session token")
		return
	}
	utils.Flash(ctx, "You are now logged in!", "/", gin.H{
		"token":    token,
		"username": user.Username,
	})
}

// Logout revokes the current session token.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token != "" {
		expiresAt := time.Now().Add(sessionDuration)
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}
	utils.Flash(ctx, "You have been logged out.", "/", nil)
}

// PasswordChange lets an authenticated user replace their password after
// confirming the current one.
func (a *AuthController) PasswordChange(ctx *gin.Context) {
	user := currentUser(ctx, a.db)
	if user == nil {
		utils.LoginRedirect(ctx, 40105)
		return
	}

	var req passwordChangeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, 400, 40106, "invalid password data: "+err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, 400, 40003, "the two password fields did not match")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.OldPassword) {
		utils.Error(ctx, 400, 40107, "your old password was entered incorrectly")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, 500, 50001, "failed to process password")
		return
	}
	if err := a.db.Model(user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, 500, 50005, "failed to change password")
		return
	}
	utils.Flash(ctx, "You have successfully changed your password!", "/", nil)
}

// PasswordReset queues a reset email when the address matches an account.
// The response is identical either way so addresses cannot be probed.
func (a *AuthController) PasswordReset(ctx *gin.Context) {
	var req passwordResetRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, 400, 40108, "invalid email address: "+err.Error())
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err == nil {
		if err := a.queue.EnqueuePasswordResetEmail(tasks.PasswordResetEmailPayload{UserID: user.ID}); err != nil {
			utils.Logger.Warn("enqueue password reset email failed",
				zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	utils.Flash(ctx, "Check your email for instructions to reset your password.", "/", nil)
}

// PasswordResetConfirm sets a new password from the emailed reset link.
func (a *AuthController) PasswordResetConfirm(ctx *gin.Context) {
	uid, err := strconv.ParseUint(ctx.Param("uid"), 10, 32)
	if err != nil {
		utils.Denied(ctx, 40109, "The reset link is invalid or has expired!", "/accounts/password_reset")
		return
	}
	tokenUID, err := utils.ParseAccountToken(ctx.Param("token"), utils.TokenPurposePasswordReset)
	if err != nil || tokenUID != uint(uid) {
		utils.Denied(ctx, 40109, "The reset link is invalid or has expired!", "/accounts/password_reset")
		return
	}

	var req passwordResetConfirmRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, 400, 40106, "invalid password data: "+err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, 400, 40003, "the two password fields did not match")
		return
	}

	var user models.User
	if err := a.db.First(&user, uint(uid)).Error; err != nil {
		utils.Denied(ctx, 40109, "The reset link is invalid or has expired!", "/accounts/password_reset")
		return
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, 500, 50001, "failed to process password")
		return
	}
	if err := a.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, 500, 50005, "failed to reset password")
		return
	}
	utils.Flash(ctx, "You have successfully reset your password!", "/accounts/login", nil)
}
