package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewChatworkNotifier_DefaultBaseURL(t *testing.T) {
	n := NewChatworkNotifier(ChatworkConfig{APIToken: "token", RoomID: "123"})
	assert.Equal(t, DefaultChatworkBaseURL, n.config.BaseURL)
	assert.Equal(t, ChannelChatwork, n.GetChannelType())
}

func TestChatworkNotifier_formatMessage(t *testing.T) {
	n := NewChatworkNotifier(ChatworkConfig{APIToken: "dummy", RoomID: "123"})
	msg := &Message{
		Type:       MessageTypeSuccess,
		Title:      "Upload Completed: report.txt",
		Text:       "Test Body",
		Fields:     map[string]any{"B": "2", "A": "1"},
		Timestamp:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ConfigName: "nightly",
	}

	formatted := n.formatMessage(msg)
	assert.Contains(t, formatted, "[info][title](y) Upload Completed: report.txt[/title]")
	assert.Contains(t, formatted, "Time: 2024-01-02 03:04:05")
	assert.Contains(t, formatted, "- A: 1\n- B: 2\n")
	assert.Contains(t, formatted, "Config: nightly")
	assert.Regexp(t, `\[/info\]$`, formatted)
}

func TestChatworkNotifier_ValidateConfig(t *testing.T) {
	c := &ChatworkNotifier{}

	assert.NoError(t, c.ValidateConfig(map[string]any{"api_token": "token", "room_id": "room"}))
	assert.Error(t, c.ValidateConfig(map[string]any{"api_token": "", "room_id": ""}))
	assert.Error(t, c.ValidateConfig(map[string]any{"api_token": "token", "room_id": ""}))
	assert.Error(t, c.ValidateConfig(map[string]any{"api_token": "", "room_id": "123456"}))
}

func TestChatworkNotifier_getEmojiForType(t *testing.T) {
	c := &ChatworkNotifier{}
	assert.Equal(t, "(y)", c.getEmojiForType(MessageTypeSuccess))
	assert.Equal(t, "(devil)", c.getEmojiForType(MessageTypeError))
	assert.Equal(t, "(blush)", c.getEmojiForType(MessageTypeWarning))
	assert.Equal(t, "(*)", c.getEmojiForType(MessageTypeInfo))
	assert.Equal(t, ":)", c.getEmojiForType("other"))
}

func TestChatworkNotifier_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rooms/42/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-ChatWorkToken"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "0", r.PostForm.Get("self_unread"))
		assert.Contains(t, r.PostForm.Get("body"), "Download Completed")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewChatworkNotifier(ChatworkConfig{APIToken: "secret", RoomID: "42", BaseURL: server.URL + "/"})
	err := n.Send(context.Background(), &Message{
		Type:      MessageTypeSuccess,
		Title:     "Download Completed",
		Timestamp: time.Now(),
	})
	assert.NoError(t, err)
}

func TestChatworkNotifier_Send_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	n := NewChatworkNotifier(ChatworkConfig{APIToken: "bad", RoomID: "42", BaseURL: server.URL})
	err := n.Send(context.Background(), &Message{Type: MessageTypeInfo, Title: "Test", Timestamp: time.Now()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chatwork API returned status 401")
}

func TestChatworkNotifier_Send_UnreachableAPI(t *testing.T) {
	n := NewChatworkNotifier(ChatworkConfig{APIToken: "token", RoomID: "room", BaseURL: "http://127.0.0.1:1"})
	err := n.Send(context.Background(), &Message{Type: MessageTypeInfo, Title: "Test", Timestamp: time.Now()})
	assert.Error(t, err, "expected error for unreachable API")
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "999 B", formatFileSize(999))
	assert.Equal(t, "1.0 KB", formatFileSize(1024))
	assert.Equal(t, "1.0 MB", formatFileSize(1024*1024))
	assert.Equal(t, "1.0 GB", formatFileSize(1024*1024*1024))
}
