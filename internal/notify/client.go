// Package notify posts ops alerts to a Mattermost/Slack compatible incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/trailquest/trailquest/internal/config"
	"github.com/trailquest/trailquest/internal/metrics"
	"github.com/trailquest/trailquest/pkg/logger"
)

// Alerter is what services depend on to raise ops alerts.
type Alerter interface {
	DeploymentRejected(ctx context.Context, alert DeploymentAlert) error
	SendSimpleMessage(ctx context.Context, text string) error
}

// Client handles webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	http       *retryablehttp.Client
	log        *logger.Logger
}

// NewClient creates a new webhook client.
func NewClient(cfg *config.AlertsConfig, log *logger.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.RetryWaitMin = 200 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = 10 * time.Second
	httpClient.Logger = nil

	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		http:       httpClient,
		log:        log,
	}
}

// Message represents a webhook message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SendMessage posts a message to the webhook.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Alerts are disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordAlertSent("error")
		return fmt.Errorf("failed to send alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordAlertSent("error")
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	metrics.RecordAlertSent("ok")
	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent alert")

	return nil
}

// SendSimpleMessage sends a simple text message.
func (c *Client) SendSimpleMessage(ctx context.Context, text string) error {
	return c.SendMessage(ctx, &Message{
		Text: text,
	})
}

// DeploymentAlert describes a paid deployment that could not be applied.
type DeploymentAlert struct {
	Reference string
	HuntID    uint
	UserID    uint
	Amount    string
	Reason    string
}

// DeploymentRejected reports a confirmed deployment payment that failed its
// preconditions. Money was taken, so somebody has to look at it.
func (c *Client) DeploymentRejected(ctx context.Context, alert DeploymentAlert) error {
	return c.SendMessage(ctx, &Message{
		Username: "TrailQuest Billing",
		Text:     "⚠️ **Deployment payment needs manual review**",
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("Deployment %s rejected: %s", alert.Reference, alert.Reason),
			Color:    "#d9534f",
			Title:    "Deployment rejected after payment",
			Text:     alert.Reason,
			Fields: []Field{
				{Short: true, Title: "Reference", Value: alert.Reference},
				{Short: true, Title: "Amount", Value: alert.Amount},
				{Short: true, Title: "Hunt", Value: fmt.Sprintf("%d", alert.HuntID)},
				{Short: true, Title: "User", Value: fmt.Sprintf("%d", alert.UserID)},
			},
		}},
	})
}
