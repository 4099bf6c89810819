package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DiscordNotifier implements the Notifier interface for Discord
type DiscordNotifier struct {
	config DiscordConfig
	client *resty.Client
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config: config,
		client: newRestClient(),
	}
}

// DiscordWebhookPayload represents the payload structure for Discord webhooks
type DiscordWebhookPayload struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents an embed in Discord message
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedField represents a field in Discord embed
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// DiscordEmbedFooter represents footer in Discord embed
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// Send sends a notification message to Discord
func (d *DiscordNotifier) Send(ctx context.Context, message *Message) error {
	// Create Discord payload
	payload := d.createPayload(message)

	// Send request
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(d.config.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	// Check response
	return checkResponse("discord webhook", resp)
}

// ValidateConfig validates the Discord configuration
func (d *DiscordNotifier) ValidateConfig(config map[string]interface{}) error {
	webhookURL, ok := config["webhook_url"].(string)
	if !ok || webhookURL == "" {
		return fmt.Errorf("webhook_url is required for Discord")
	}

	return nil
}

// GetChannelType returns the notification channel type
func (d *DiscordNotifier) GetChannelType() NotificationChannel {
	return ChannelDiscord
}

// createPayload creates a Discord webhook payload from a message
func (d *DiscordNotifier) createPayload(message *Message) *DiscordWebhookPayload {
	embed := DiscordEmbed{
		Title:       message.Title,
		Description: message.Text,
		Color:       d.getColorForType(message.Type),
		Timestamp:   message.Timestamp.Format(time.RFC3339),
		Footer:      &DiscordEmbedFooter{Text: footerText},
	}

	// Add fields if present
	for _, key := range sortedKeys(message.Fields) {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   key,
			Value:  fmt.Sprintf("%v", message.Fields[key]),
			Inline: true,
		})
	}

	// Add configuration name if present
	if message.ConfigName != "" {
		embed.Fields = append(embed.Fields, DiscordEmbedField{
			Name:   "Configuration",
			Value:  message.ConfigName,
			Inline: true,
		})
	}

	// Set username and avatar if configured
	return &DiscordWebhookPayload{
		Username:  d.config.Username,
		AvatarURL: d.config.AvatarURL,
		Embeds:    []DiscordEmbed{embed},
	}
}

// getColorForType returns an appropriate color for the message type
func (d *DiscordNotifier) getColorForType(msgType MessageType) int {
	switch msgType {
	case MessageTypeSuccess:
		return 0x00FF00
	case MessageTypeError:
		return 0xFF0000
	case MessageTypeWarning:
		return 0xFFFF00
	default:
		return 0x0099FF
	}
}
