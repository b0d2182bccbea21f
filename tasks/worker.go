package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/quillhub/quillhub/config"
	"github.com/quillhub/quillhub/models"
	"github.com/quillhub/quillhub/utils"
)

// Consumer executes email tasks against the entity store and the SMTP
// mailer.
type Consumer struct {
	db *gorm.DB
}

// NewConsumer creates a Consumer.
func NewConsumer(db *gorm.DB) *Consumer {
	return &Consumer{db: db}
}

// Register wires the task handlers into the serve mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskActivationEmail, c.handleActivationEmail)
	mux.HandleFunc(TaskPasswordResetEmail, c.handlePasswordResetEmail)
	mux.HandleFunc(TaskPostShareEmail, c.handlePostShareEmail)
}

func (c *Consumer) handleActivationEmail(_ context.Context, task *asynq.Task) error {
	var payload ActivationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	var user models.User
	if err := c.db.First(&user, payload.UserID).Error; err != nil {
		return err
	}
	if user.IsActive || user.Email == "" {
		// Nothing to do; the account activated before the task ran.
		return nil
	}
	token, err := utils.GenerateAccountToken(user.ID, utils.TokenPurposeActivate, utils.ActivationTokenTTL)
	if err != nil {
		return err
	}
	cfg := config.Get()
	link := fmt.Sprintf("%s/accounts/activate/%d/%s", cfg.BaseURL, user.ID, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease confirm your registration by visiting the link below:\n\n%s\n\nIf you did not register, ignore this message.",
		user.Username, link,
	)
	if err := utils.SendMail(user.Email, "Activate your account", body); err != nil {
		utils.Sugar.Warnf("activation email to user %d failed: %v", user.ID, err)
		return err
	}
	return nil
}

func (c *Consumer) handlePasswordResetEmail(_ context.Context, task *asynq.Task) error {
	var payload PasswordResetEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	var user models.User
	if err := c.db.First(&user, payload.UserID).Error; err != nil {
		return err
	}
	if user.Email == "" {
		return nil
	}
	token, err := utils.GenerateAccountToken(user.ID, utils.TokenPurposePasswordReset, utils.PasswordResetTokenTTL)
	if err != nil {
		return err
	}
	cfg := config.Get()
	link := fmt.Sprintf("%s/accounts/password_reset/%d/%s", cfg.BaseURL, user.ID, token)
	body := fmt.Sprintf(
		"Hi %s,\n\nUse the link below to set a new password:\n\n%s\n\nThe link expires in one hour.",
		user.Username, link,
	)
	if err := utils.SendMail(user.Email, "Password reset", body); err != nil {
		utils.Sugar.Warnf("password reset email to user %d failed: %v", user.ID, err)
		return err
	}
	return nil
}

func (c *Consumer) handlePostShareEmail(_ context.Context, task *asynq.Task) error {
	var payload PostShareEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	var post models.Post
	if err := c.db.Where("slug = ?", payload.Slug).First(&post).Error; err != nil {
		return err
	}
	subject := fmt.Sprintf("%s shared this post: %s", payload.Sender, post.Title)
	body := fmt.Sprintf("%s\n\n\nCheck out this post at: %s", payload.Description, payload.PostURL)
	if err := utils.SendMail(payload.EmailTo, subject, body); err != nil {
		utils.Sugar.Warnf("share email for post %s failed: %v", payload.Slug, err)
		return err
	}
	return nil
}

// StartWorker runs the asynq server with this consumer in a background
// goroutine. Returns nil when the queue is disabled.
func StartWorker(db *gorm.DB, cfg config.AppConfig) *asynq.Server {
	if !cfg.QueueEnabled || cfg.RedisHost == "" {
		return nil
	}
	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: cfg.QueueConcurrency,
		Queues:      map[string]int{DefaultQueue: 1},
	})
	mux := asynq.NewServeMux()
	NewConsumer(db).Register(mux)
	go func() {
		if err := srv.Run(mux); err != nil {
			utils.Sugar.Errorf("task worker stopped: %v", err)
		}
	}()
	return srv
}
