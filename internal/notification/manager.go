package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/vfa-khuongdv/drivectl/internal/database"
)

var log = logging.Logger("notification")

// Manager fans notification messages out to the configured channels
type Manager struct {
	store     ConfigStore
	notifiers map[string]*registration
	mutex     sync.RWMutex
}

// registration is a notifier together with the outcomes it subscribes to
type registration struct {
	notifier        Notifier
	notifyOnSuccess bool
	notifyOnError   bool
}

// NewManager creates a new notification manager
func NewManager(store ConfigStore) *Manager {
	return &Manager{
		store:     store,
		notifiers: make(map[string]*registration),
	}
}

// AddNotifier registers a notifier for a specific configuration, replacing any previous one
func (m *Manager) AddNotifier(configName string, notifier Notifier, notifyOnSuccess, notifyOnError bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.notifiers[configName] = &registration{
		notifier:        notifier,
		notifyOnSuccess: notifyOnSuccess,
		notifyOnError:   notifyOnError,
	}
	log.Debugf("Added %s notifier for config '%s'", notifier.GetChannelType(), configName)
}

// RemoveNotifier removes a notifier for a specific configuration
func (m *Manager) RemoveNotifier(configName string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.notifiers, configName)
	log.Debugf("Removed notifier for config '%s'", configName)
}

// GetNotifierCount returns the number of active notifiers
func (m *Manager) GetNotifierCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.notifiers)
}

// SendNotification sends the same message to every registered notifier concurrently
func (m *Manager) SendNotification(ctx context.Context, message *Message) []NotificationResult {
	return m.fanOut(ctx,
		func(*registration) bool { return true },
		func(Notifier) *Message { return message },
	)
}

// SendOperationNotification notifies every registered notifier that subscribes to the operation outcome
func (m *Manager) SendOperationNotification(ctx context.Context, data *OperationNotificationData) []NotificationResult {
	failed := data.Failed()

	return m.fanOut(ctx,
		func(r *registration) bool {
			if failed {
				return r.notifyOnError
			}
			return r.notifyOnSuccess
		},
		func(n Notifier) *Message { return CreateOperationMessage(n.GetChannelType(), data) },
	)
}

func (m *Manager) fanOut(ctx context.Context, include func(*registration) bool, build func(Notifier) *Message) []NotificationResult {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var wg sync.WaitGroup
	resultChan := make(chan NotificationResult, len(m.notifiers))

	for configName, reg := range m.notifiers {
		if !include(reg) {
			continue
		}

		wg.Add(1)
		go func(name string, n Notifier) {
			defer wg.Done()
			resultChan <- m.send(ctx, name, n, build(n))
		}(configName, reg.notifier)
	}

	wg.Wait()
	close(resultChan)

	var results []NotificationResult
	for result := range resultChan {
		results = append(results, result)
	}
	return results
}

// TestNotification sends a test notification to a specific configuration
func (m *Manager) TestNotification(ctx context.Context, configName string) error {
	if m.store == nil {
		return fmt.Errorf("notification store is not configured")
	}

	config, err := m.store.GetNotificationConfigByName(configName)
	if err != nil {
		return fmt.Errorf("failed to get notification config: %w", err)
	}

	notifier, err := NewNotifier(config)
	if err != nil {
		return fmt.Errorf("failed to create notifier: %w", err)
	}

	return notifier.Send(ctx, testMessage(config.Channel, configName))
}

// TestAllNotifications sends a test notification through every registered notifier
func (m *Manager) TestAllNotifications(ctx context.Context) ([]NotificationResult, error) {
	if m.GetNotifierCount() == 0 {
		return nil, fmt.Errorf("no enabled notification configs")
	}

	return m.SendNotification(ctx, testMessage("every channel", "all")), nil
}

func testMessage(channel, configName string) *Message {
	return &Message{
		Type:      MessageTypeInfo,
		Title:     "Test Notification",
		Text:      fmt.Sprintf("This is a test notification from drivectl via %s", channel),
		Timestamp: time.Now(),
		Fields: map[string]interface{}{
			"Channel":       channel,
			"Configuration": configName,
		},
	}
}

// LoadNotifiers registers a notifier for every enabled configuration in the store
// and drops notifiers whose configuration is gone, disabled or invalid
func (m *Manager) LoadNotifiers() error {
	if m.store == nil {
		return nil
	}

	configs, err := m.store.GetEnabledNotificationConfigs()
	if err != nil {
		return fmt.Errorf("failed to get notification configs: %w", err)
	}

	loaded := make(map[string]bool)
	for i := range configs {
		config := &configs[i]
		notifier, err := NewNotifier(config)
		if err != nil {
			log.Errorf("Failed to create notifier for config '%s': %v", config.Name, err)
			continue
		}
		m.AddNotifier(config.Name, notifier, config.NotifyOnSuccess, config.NotifyOnError)
		loaded[config.Name] = true
	}

	for _, name := range m.registeredNames() {
		if !loaded[name] {
			m.RemoveNotifier(name)
		}
	}

	log.Infof("Loaded %d notification channels", len(loaded))
	return nil
}

func (m *Manager) registeredNames() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	names := make([]string, 0, len(m.notifiers))
	for name := range m.notifiers {
		names = append(names, name)
	}
	return names
}

func (m *Manager) send(ctx context.Context, configName string, notifier Notifier, message *Message) NotificationResult {
	result := NotificationResult{
		ConfigName: configName,
		Channel:    notifier.GetChannelType(),
		SentAt:     time.Now(),
	}

	if err := notifier.Send(ctx, message); err != nil {
		result.Error = err.Error()
		log.Warnf("Failed to send notification via %s (config: %s): %v", result.Channel, configName, err)
		return result
	}

	result.Success = true
	log.Debugf("Sent notification via %s (config: %s)", result.Channel, configName)
	return result
}

// NewNotifier builds the notifier described by a stored configuration
func NewNotifier(config *database.NotificationConfig) (Notifier, error) {
	if err := ValidateChannelConfig(config.Channel, config.Config); err != nil {
		return nil, err
	}

	switch NotificationChannel(config.Channel) {
	case ChannelChatwork:
		chatworkConfig, err := decodeConfig[ChatworkConfig](config.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Chatwork config: %w", err)
		}
		return NewChatworkNotifier(*chatworkConfig), nil

	case ChannelDiscord:
		discordConfig, err := decodeConfig[DiscordConfig](config.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Discord config: %w", err)
		}
		return NewDiscordNotifier(*discordConfig), nil

	case ChannelSlack:
		slackConfig, err := decodeConfig[SlackConfig](config.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Slack config: %w", err)
		}
		return NewSlackNotifier(*slackConfig), nil

	default:
		return nil, fmt.Errorf("unsupported notification channel: %s", config.Channel)
	}
}

// ValidateChannelConfig checks the settings required by a channel
func ValidateChannelConfig(channel string, config map[string]interface{}) error {
	switch NotificationChannel(channel) {
	case ChannelChatwork:
		return (&ChatworkNotifier{}).ValidateConfig(config)
	case ChannelDiscord:
		return (&DiscordNotifier{}).ValidateConfig(config)
	case ChannelSlack:
		return (&SlackNotifier{}).ValidateConfig(config)
	default:
		return fmt.Errorf("unsupported notification channel: %s", channel)
	}
}

func decodeConfig[T any](config map[string]interface{}) (*T, error) {
	jsonData, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
