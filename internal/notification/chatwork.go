package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DefaultChatworkBaseURL is the Chatwork REST endpoint
const DefaultChatworkBaseURL = "https://api.chatwork.com/v2"

// ChatworkNotifier implements the Notifier interface for Chatwork
type ChatworkNotifier struct {
	config ChatworkConfig
	client *resty.Client
}

// NewChatworkNotifier creates a new Chatwork notifier
func NewChatworkNotifier(config ChatworkConfig) *ChatworkNotifier {
	if config.BaseURL == "" {
		config.BaseURL = DefaultChatworkBaseURL
	}
	return &ChatworkNotifier{
		config: config,
		client: newRestClient(),
	}
}

// Send posts a message to the configured Chatwork room
func (c *ChatworkNotifier) Send(ctx context.Context, message *Message) error {
	// Build API URL
	apiURL := fmt.Sprintf("%s/rooms/%s/messages", strings.TrimRight(c.config.BaseURL, "/"), c.config.RoomID)

	// Send form-encoded request
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-ChatWorkToken", c.config.APIToken).
		SetFormData(map[string]string{
			"body":        c.formatMessage(message),
			"self_unread": "0",
		}).
		Post(apiURL)
	if err != nil {
		log.Warnf("Error sending request to Chatwork: %v", err)
		return fmt.Errorf("failed to send request: %w", err)
	}

	// Check response
	return checkResponse("chatwork API", resp)
}

// ValidateConfig validates the Chatwork configuration
func (c *ChatworkNotifier) ValidateConfig(config map[string]interface{}) error {
	apiToken, ok := config["api_token"].(string)
	if !ok || apiToken == "" {
		return fmt.Errorf("api_token is required for Chatwork")
	}

	roomID, ok := config["room_id"].(string)
	if !ok || roomID == "" {
		return fmt.Errorf("room_id is required for Chatwork")
	}

	return nil
}

// GetChannelType returns the notification channel type
func (c *ChatworkNotifier) GetChannelType() NotificationChannel {
	return ChannelChatwork
}

// formatMessage renders a message with Chatwork's [info] markup
func (c *ChatworkNotifier) formatMessage(message *Message) string {
	var builder strings.Builder

	// Title and timestamp
	fmt.Fprintf(&builder, "[info][title]%s %s[/title]\n", c.getEmojiForType(message.Type), message.Title)
	fmt.Fprintf(&builder, "Time: %s\n", message.Timestamp.Format("2006-01-02 15:04:05"))
	builder.WriteString("[hr]\n")

	if message.Text != "" {
		fmt.Fprintf(&builder, "%s\n", message.Text)
	}

	// Add fields if present
	if len(message.Fields) > 0 {
		builder.WriteString("\nDetails:\n")
		for _, key := range sortedKeys(message.Fields) {
			fmt.Fprintf(&builder, "- %s: %v\n", key, message.Fields[key])
		}
	}

	// Add configuration name if present
	if message.ConfigName != "" {
		builder.WriteString("[hr]\n")
		fmt.Fprintf(&builder, "Config: %s\n", message.ConfigName)
	}

	builder.WriteString("[/info]")
	return builder.String()
}

// getEmojiForType returns a Chatwork emoticon for the message type
func (c *ChatworkNotifier) getEmojiForType(msgType MessageType) string {
	switch msgType {
	case MessageTypeSuccess:
		return "(y)"
	case MessageTypeError:
		return "(devil)"
	case MessageTypeWarning:
		return "(blush)"
	case MessageTypeInfo:
		return "(*)"
	default:
		return ":)"
	}
}
