package notification

import (
	"fmt"
	"strings"
	"time"
)

// CreateOperationMessage builds a channel-flavoured message for a finished operation
func CreateOperationMessage(channel NotificationChannel, data *OperationNotificationData) *Message {
	completedAt := data.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	subject := data.subject()
	operation := operationTitle(data.Operation)

	fields := map[string]interface{}{
		"Operation": data.Operation,
		"Duration":  completedAt.Sub(data.StartedAt).Round(time.Millisecond).String(),
	}
	if data.FileName != "" {
		fields["File Name"] = data.FileName
	}
	if data.FileID != "" {
		fields["File ID"] = data.FileID
	}
	if data.LocalPath != "" {
		fields["Local Path"] = data.LocalPath
	}
	if data.JobName != "" {
		fields["Job"] = data.JobName
	}

	message := &Message{
		Timestamp:  completedAt,
		Fields:     fields,
		ConfigName: data.JobName,
	}

	if data.Failed() {
		fields["Error"] = data.ErrorMessage
		message.Type = MessageTypeError
		message.Title = fmt.Sprintf("%s Failed: %s", operation, subject)
		message.Text = fmt.Sprintf("Drive %s failed for %s", data.Operation, emphasize(channel, subject))
	} else {
		if data.Bytes > 0 {
			fields["File Size"] = formatFileSize(data.Bytes)
		}
		if data.WebViewLink != "" {
			fields[linkFieldName] = formatLink(channel, data.WebViewLink)
		}
		message.Type = MessageTypeSuccess
		message.Title = fmt.Sprintf("%s Completed: %s", operation, subject)
		message.Text = fmt.Sprintf("Drive %s completed successfully for %s", data.Operation, emphasize(channel, subject))
	}

	message.Title = titlePrefix(channel, message.Type) + message.Title
	return message
}

func (d *OperationNotificationData) subject() string {
	switch {
	case d.FileName != "":
		return d.FileName
	case d.FileID != "":
		return d.FileID
	case d.JobName != "":
		return d.JobName
	default:
		return d.Operation
	}
}

func operationTitle(operation string) string {
	if operation == "" {
		return "Operation"
	}
	return strings.ToUpper(operation[:1]) + operation[1:]
}

func titlePrefix(channel NotificationChannel, msgType MessageType) string {
	switch channel {
	case ChannelSlack:
		if msgType == MessageTypeError {
			return ":x: "
		}
		return ":white_check_mark: "
	case ChannelDiscord:
		if msgType == MessageTypeError {
			return "❌ "
		}
		return "✅ "
	default:
		return ""
	}
}

func emphasize(channel NotificationChannel, text string) string {
	switch channel {
	case ChannelSlack:
		return "*" + text + "*"
	case ChannelDiscord:
		return "**" + text + "**"
	default:
		return text
	}
}

func formatLink(channel NotificationChannel, url string) string {
	switch channel {
	case ChannelSlack:
		return fmt.Sprintf("<%s|View File>", url)
	case ChannelDiscord:
		return fmt.Sprintf("[View File](%s)", url)
	default:
		return url
	}
}
