package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names. All outbound email leaves the request path as one of
// these; delivery, retry and failure handling live with the queue.
const (
	TaskActivationEmail    = "email:activation"
	TaskPasswordResetEmail = "email:password_reset"
	TaskPostShareEmail     = "email:post_share"
)

// DefaultQueue is the queue every email task is enqueued on.
const DefaultQueue = "default"

// ActivationEmailPayload identifies the user awaiting activation. The token
// is minted by the worker so a delayed task still carries a fresh link.
type ActivationEmailPayload struct {
	UserID uint `json:"user_id"`
}

// PasswordResetEmailPayload identifies the user who requested a reset.
type PasswordResetEmailPayload struct {
	UserID uint `json:"user_id"`
}

// PostShareEmailPayload carries everything needed to compose a share email
// without loading the sharing user again.
type PostShareEmailPayload struct {
	Slug        string `json:"slug"`
	Sender      string `json:"sender"`
	Description string `json:"description"`
	EmailTo     string `json:"email_to"`
	PostURL     string `json:"post_url"`
}

// NewActivationEmailTask creates an activation email task.
func NewActivationEmailTask(payload ActivationEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivationEmail, body), nil
}

// NewPasswordResetEmailTask creates a password reset email task.
func NewPasswordResetEmailTask(payload PasswordResetEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPasswordResetEmail, body), nil
}

// NewPostShareEmailTask creates a post share email task.
func NewPostShareEmailTask(payload PostShareEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPostShareEmail, body), nil
}
