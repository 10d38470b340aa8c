package notifications

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"contact_intake/internal/submission"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultSenderName is the display name used on outgoing notifications.
const DefaultSenderName = "Portfolio Contact Form"

// Settings configures where notifications go and who they appear to be from.
type Settings struct {
	AdminEmail string
	SenderName string
	// SenderAddress is optional; Gmail uses the authenticated account when empty.
	SenderAddress string
	// UserID is the Gmail user the message is sent as; "me" by default.
	UserID string
}

type Client struct {
	service  *gmail.Service
	settings Settings

	mutex       sync.Mutex
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

// NewClient builds a Gmail-backed notifier. Credentials (or a test endpoint)
// come in through opts.
func NewClient(ctx context.Context, settings Settings, opts ...option.ClientOption) (*Client, error) {
	if settings.AdminEmail == "" {
		return nil, errors.New("admin email is required")
	}
	if settings.SenderName == "" {
		settings.SenderName = DefaultSenderName
	}
	if settings.UserID == "" {
		settings.UserID = "me"
	}

	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		service:  service,
		settings: settings,
	}, nil
}

// Notify emails the administrator about a cleaned submission. Replies go to
// the submitter.
func (c *Client) Notify(ctx context.Context, cleaned submission.Cleaned) error {
	msg := Compose(c.settings.AdminEmail, cleaned)
	err := c.Send(ctx, msg)
	if err != nil {
		c.recordFailure()
		return err
	}
	c.recordSuccess()
	return nil
}

// Send delivers a composed message through the Gmail API.
func (c *Client) Send(ctx context.Context, msg Message) error {
	raw, err := msg.Render(c.settings.SenderName, c.settings.SenderAddress)
	if err != nil {
		return &NotificationError{Type: "client", Underlying: err}
	}

	log.Ctx(ctx).Debug().
		Str("to", msg.To).
		Str("reply_to", msg.ReplyTo).
		Str("subject", msg.Subject).
		Msg("Sending notification")

	sent, err := c.service.Users.Messages.
		Send(c.settings.UserID, &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}).
		Context(ctx).
		Do()
	if err != nil {
		return categorize(ctx, err)
	}

	log.Ctx(ctx).Debug().
		Str("message_id", sent.Id).
		Msg("Notification sent successfully")
	return nil
}

func categorize(ctx context.Context, err error) *NotificationError {
	var apiErr *googleapi.Error
	switch {
	case errors.As(err, &apiErr):
		return &NotificationError{
			Type:       categorizeHTTPError(apiErr.Code),
			StatusCode: apiErr.Code,
			Underlying: err,
		}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &NotificationError{Type: "timeout", Underlying: err}
	default:
		return &NotificationError{Type: "network", Underlying: err}
	}
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.totalSent++
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.totalFailed++
}

// GetMetrics returns how many notifications were sent and failed.
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.totalSent, c.totalFailed
}
