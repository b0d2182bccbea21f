package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/quillhub/quillhub/config"
)

// Client wraps the asynq producer. Enqueue success is the only guarantee the
// request path observes; a disabled client no-ops so the application keeps
// working without the queue.
type Client struct {
	client  *asynq.Client
	enabled bool
}

// NewClient creates the queue client from configuration.
func NewClient(cfg config.AppConfig) *Client {
	if !cfg.QueueEnabled || cfg.RedisHost == "" {
		return &Client{enabled: false}
	}
	return &Client{
		client:  asynq.NewClient(redisOpt(cfg)),
		enabled: true,
	}
}

// Enabled reports whether tasks actually reach a queue.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueActivationEmail queues the activation email for a freshly
// registered user.
func (c *Client) EnqueueActivationEmail(payload ActivationEmailPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewActivationEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(DefaultQueue))
	return err
}

// EnqueuePasswordResetEmail queues the reset email.
func (c *Client) EnqueuePasswordResetEmail(payload PasswordResetEmailPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPasswordResetEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(DefaultQueue))
	return err
}

// EnqueuePostShareEmail queues the share-by-email message.
func (c *Client) EnqueuePostShareEmail(payload PostShareEmailPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPostShareEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, asynq.Queue(DefaultQueue))
	return err
}

func redisOpt(cfg config.AppConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}
