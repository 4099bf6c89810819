package drivectl

import (
	"context"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"google.golang.org/api/option"

	"github.com/vfa-khuongdv/drivectl/internal/auth"
	"github.com/vfa-khuongdv/drivectl/internal/database"
	"github.com/vfa-khuongdv/drivectl/internal/notification"
	"github.com/vfa-khuongdv/drivectl/internal/scheduler"
	"github.com/vfa-khuongdv/drivectl/pkg/gdrive"
)

var log = logging.Logger("drivectl")

// DefaultKeyFile is the service-account key read when Config.KeyFile is empty
const DefaultKeyFile = "./googledrive.json"

// Manager is the entry point for Drive operations, scheduled uploads and notifications
type Manager struct {
	dbService        *database.Service
	authService      *auth.Service
	driveService     *gdrive.Service
	notifyManager    *notification.Manager
	schedulerService *scheduler.Service
	config           *Config

	mutex            sync.Mutex
	schedulerRunning bool
}

type Config struct {
	// Service-account key file, defaults to DefaultKeyFile
	KeyFile string
	// Raw key JSON, takes precedence over KeyFile
	KeyJSON []byte
	// OAuth scopes, defaults to the full Drive scope
	Scopes []string
	// Folder used when an operation does not name one
	FolderID string
	// Local store for tokens, history and jobs; nil uses an in-memory SQLite database
	DatabaseConfig *database.Config
	// Client-side pacing of Drive requests; zero disables it
	RateLimit float64
	Burst     int
	// Listing page size, defaults to 10
	PageSize int64
	// Notification targets synced into the store by Initialize
	NotificationConfig []NotificationConfig
	// Scheduled uploads synced into the store by Initialize
	UploadJobs []UploadJobConfig
	// Extra options for the Drive client, such as a custom endpoint
	DriveOptions []option.ClientOption
}

// NotificationConfig declares a webhook target
type NotificationConfig struct {
	Name            string
	Channel         notification.NotificationChannel
	Config          map[string]interface{}
	NotifyOnSuccess bool
	NotifyOnError   bool
	Enabled         bool
}

// UploadJobConfig declares a scheduled upload
type UploadJobConfig struct {
	Name           string
	LocalPath      string
	RemoteName     string
	MimeType       string
	FolderID       string
	Mode           string // create or update
	CronExpression string
	Enabled        bool
}

// NewUploadJobConfig creates an enabled upload job configuration
func NewUploadJobConfig(name, localPath, mode, cronExpression string) *UploadJobConfig {
	return &UploadJobConfig{
		Name:           name,
		LocalPath:      localPath,
		Mode:           mode,
		CronExpression: cronExpression,
		Enabled:        true,
	}
}

// NewManager opens the store, loads the service-account key and wires the services
func NewManager(config *Config) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	dbConfig := config.DatabaseConfig
	if dbConfig == nil {
		dbConfig = &database.Config{Driver: database.DriverSQLite, Path: ":memory:"}
	}

	dbService, err := database.NewService(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	var authService *auth.Service
	if len(config.KeyJSON) > 0 {
		authService, err = auth.NewServiceFromJSON(config.KeyJSON, config.Scopes, dbService)
	} else {
		keyFile := config.KeyFile
		if keyFile == "" {
			keyFile = DefaultKeyFile
		}
		authService, err = auth.NewService(keyFile, config.Scopes, dbService)
	}
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	driveService := gdrive.NewService(authService,
		gdrive.WithFolder(config.FolderID),
		gdrive.WithPageSize(config.PageSize),
		gdrive.WithRateLimit(config.RateLimit, config.Burst),
		gdrive.WithClientOptions(config.DriveOptions...),
	)

	manager := &Manager{
		dbService:     dbService,
		authService:   authService,
		driveService:  driveService,
		notifyManager: notification.NewManager(dbService),
		config:        config,
	}
	manager.schedulerService = scheduler.NewService(dbService, manager)

	log.Infof("Using service account %s", authService.ClientEmail())
	return manager, nil
}

// Initialize syncs notification and upload job configurations into the store
func (m *Manager) Initialize() error {
	log.Info("Initializing drive manager...")

	if err := m.SyncNotifications(); err != nil {
		return fmt.Errorf("failed to sync notification configs: %w", err)
	}
	if err := m.SyncUploadJobs(); err != nil {
		return fmt.Errorf("failed to sync upload jobs: %w", err)
	}

	log.Info("Drive manager initialized successfully")
	return nil
}

// StartScheduler schedules every enabled upload job
func (m *Manager) StartScheduler() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.schedulerRunning {
		return
	}
	m.schedulerService.Start()
	m.schedulerRunning = true
}

// Close stops the scheduler and closes the store
func (m *Manager) Close() error {
	log.Info("Shutting down drive manager...")

	m.mutex.Lock()
	if m.schedulerRunning {
		m.schedulerService.Stop()
		m.schedulerRunning = false
	}
	m.mutex.Unlock()

	if err := m.dbService.Close(); err != nil {
		return fmt.Errorf("failed to close database service: %w", err)
	}

	log.Info("Drive manager shut down successfully")
	return nil
}

// Reload replaces the notification and job configurations and reschedules running jobs
func (m *Manager) Reload(notifications []NotificationConfig, jobs []UploadJobConfig) error {
	m.config.NotificationConfig = notifications
	m.config.UploadJobs = jobs

	if err := m.Initialize(); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.schedulerRunning {
		return nil
	}

	for _, info := range m.schedulerService.GetScheduledJobs() {
		m.schedulerService.RemoveUploadJob(info.Name)
	}

	stored, err := m.dbService.GetUploadJobs()
	if err != nil {
		return fmt.Errorf("failed to load upload jobs: %w", err)
	}
	for i := range stored {
		if err := m.schedulerService.AddUploadJob(&stored[i]); err != nil {
			log.Errorf("Failed to schedule upload job '%s': %v", stored[i].Name, err)
		}
	}
	return nil
}

// SyncNotifications upserts the configured notification targets, prunes stored ones no longer
// configured and reloads the active notifiers
func (m *Manager) SyncNotifications() error {
	configured := make(map[string]bool)

	for _, config := range m.config.NotificationConfig {
		if err := notification.ValidateChannelConfig(string(config.Channel), config.Config); err != nil {
			return fmt.Errorf("invalid notification config '%s': %w", config.Name, err)
		}

		if err := m.dbService.SaveNotificationConfig(&database.NotificationConfig{
			Name:            config.Name,
			Channel:         string(config.Channel),
			Config:          config.Config,
			NotifyOnSuccess: config.NotifyOnSuccess,
			NotifyOnError:   config.NotifyOnError,
			Enabled:         config.Enabled,
		}); err != nil {
			return fmt.Errorf("failed to save notification config: %w", err)
		}
		configured[config.Name] = true
	}

	stored, err := m.dbService.GetNotificationConfigs()
	if err != nil {
		return fmt.Errorf("failed to load notification configs: %w", err)
	}
	for _, config := range stored {
		if configured[config.Name] {
			continue
		}
		if err := m.dbService.DeleteNotificationConfig(config.Name); err != nil {
			return fmt.Errorf("failed to delete notification config '%s': %w", config.Name, err)
		}
		log.Infof("Removed notification config '%s'", config.Name)
	}

	return m.notifyManager.LoadNotifiers()
}

// SyncUploadJobs upserts the configured jobs and prunes stored jobs no longer configured.
// Remembered file IDs of update-mode jobs survive the sync.
func (m *Manager) SyncUploadJobs() error {
	configured := make(map[string]bool)

	for _, job := range m.config.UploadJobs {
		if err := m.AddUploadJob(&job); err != nil {
			return err
		}
		configured[job.Name] = true
	}

	stored, err := m.dbService.GetAllUploadJobs()
	if err != nil {
		return fmt.Errorf("failed to load upload jobs: %w", err)
	}
	for _, job := range stored {
		if configured[job.Name] {
			continue
		}
		if err := m.dbService.DeleteUploadJob(job.Name); err != nil {
			return fmt.Errorf("failed to delete upload job '%s': %w", job.Name, err)
		}
		log.Infof("Removed upload job '%s'", job.Name)
	}
	return nil
}

// AddUploadJob validates and stores an upload job
func (m *Manager) AddUploadJob(config *UploadJobConfig) error {
	if config.Name == "" {
		return fmt.Errorf("upload job name is required")
	}
	if config.LocalPath == "" {
		return fmt.Errorf("upload job '%s': local path is required", config.Name)
	}

	mode := config.Mode
	if mode == "" {
		mode = database.JobModeCreate
	}
	if mode != database.JobModeCreate && mode != database.JobModeUpdate {
		return fmt.Errorf("upload job '%s': unsupported mode '%s'", config.Name, mode)
	}

	if err := scheduler.ValidateCronExpression(config.CronExpression); err != nil {
		return fmt.Errorf("upload job '%s': invalid cron expression: %w", config.Name, err)
	}

	job := &database.UploadJob{
		Name:         config.Name,
		LocalPath:    config.LocalPath,
		RemoteName:   config.RemoteName,
		MimeType:     config.MimeType,
		FolderID:     config.FolderID,
		Mode:         mode,
		CronSchedule: config.CronExpression,
		Enabled:      config.Enabled,
	}
	if err := m.dbService.SaveUploadJob(job); err != nil {
		return fmt.Errorf("failed to save upload job: %w", err)
	}

	log.Infof("Added upload job '%s' (%s) with schedule '%s'", job.Name, job.Mode, job.CronSchedule)
	return nil
}

// Auth Methods

// GetTokenInfo returns information about the cached token
func (m *Manager) GetTokenInfo() (*auth.TokenInfo, error) {
	return m.authService.GetTokenInfo()
}

// ValidateCredentials checks the key by making a test API call
func (m *Manager) ValidateCredentials(ctx context.Context) error {
	return m.authService.ValidateToken(ctx, m.config.DriveOptions...)
}

// WhoAmI returns the identity behind the service-account key
func (m *Manager) WhoAmI(ctx context.Context) (*gdrive.Account, error) {
	return m.driveService.GetAccount(ctx)
}

// History and job accessors

// GetOperationHistory returns recorded operations, newest first
func (m *Manager) GetOperationHistory(limit, offset int) ([]database.OperationHistory, error) {
	return m.dbService.GetOperationHistory(limit, offset)
}

// GetUploadJobs returns every stored upload job, including disabled ones
func (m *Manager) GetUploadJobs() ([]database.UploadJob, error) {
	return m.dbService.GetAllUploadJobs()
}

// GetScheduledJobs returns the jobs currently registered with the scheduler
func (m *Manager) GetScheduledJobs() []scheduler.JobInfo {
	return m.schedulerService.GetScheduledJobs()
}

// RunUploadJobNow runs a stored upload job immediately and waits for it
func (m *Manager) RunUploadJobNow(ctx context.Context, name string) error {
	return m.schedulerService.ExecuteJobNow(ctx, name)
}

// TestNotification sends a test message through a stored notification config
func (m *Manager) TestNotification(ctx context.Context, name string) error {
	return m.notifyManager.TestNotification(ctx, name)
}

// TestNotifications sends a test message through every enabled notification config
func (m *Manager) TestNotifications(ctx context.Context) ([]notification.NotificationResult, error) {
	return m.notifyManager.TestAllNotifications(ctx)
}

// GetNotificationConfigs returns every stored notification config, including disabled ones
func (m *Manager) GetNotificationConfigs() ([]database.NotificationConfig, error) {
	return m.dbService.GetNotificationConfigs()
}
