package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Operation names recorded in OperationHistory
const (
	OperationUpload   = "upload"
	OperationList     = "list"
	OperationGet      = "get"
	OperationUpdate   = "update"
	OperationDelete   = "delete"
	OperationDownload = "download"
	OperationMkdir    = "mkdir"
)

// Operation statuses
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// Upload job modes
const (
	JobModeCreate = "create"
	JobModeUpdate = "update"
)

// TokenConfig caches the last access token issued to a service account
type TokenConfig struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ClientEmail string    `json:"client_email" gorm:"not null;uniqueIndex;size:255"`
	AccessToken string    `json:"access_token" gorm:"not null"`
	TokenType   string    `json:"token_type" gorm:"default:Bearer"`
	Scopes      string    `json:"scopes" gorm:"size:1024"` // space-separated, sorted
	Expiry      time.Time `json:"expiry"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OperationHistory keeps track of Drive operations
type OperationHistory struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	Operation   string     `json:"operation" gorm:"not null"` // upload, list, get, update, delete, download
	FileID      string     `json:"file_id"`                   // Google Drive file ID
	FileName    string     `json:"file_name"`
	LocalPath   string     `json:"local_path"` // source or destination on disk
	Bytes       int64      `json:"bytes"`
	Status      string     `json:"status"` // success, failed, in_progress
	ErrorMsg    string     `json:"error_msg"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UploadJob stores a scheduled upload definition
type UploadJob struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"not null;uniqueIndex;size:255"`
	LocalPath    string    `json:"local_path" gorm:"not null"`
	RemoteName   string    `json:"remote_name"`
	MimeType     string    `json:"mime_type"`
	FolderID     string    `json:"folder_id"`
	Mode         string    `json:"mode" gorm:"not null;default:create"` // create, update
	FileID       string    `json:"file_id"`                             // target file for update mode
	CronSchedule string    `json:"cron_schedule" gorm:"not null"`       // e.g., "0 0 2 * * *" (daily at 2 AM)
	Enabled      bool      `json:"enabled" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NotificationConfig stores notification channel configurations
type NotificationConfig struct {
	ID              uint                   `json:"id" gorm:"primarykey"`
	Name            string                 `json:"name" gorm:"not null;uniqueIndex;size:255"`
	Channel         string                 `json:"channel" gorm:"not null"`
	Enabled         bool                   `json:"enabled" gorm:"default:false"`
	Config          map[string]interface{} `json:"config" gorm:"serializer:json"`
	NotifyOnSuccess bool                   `json:"notify_on_success" gorm:"default:false"`
	NotifyOnError   bool                   `json:"notify_on_error" gorm:"default:false"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func (TokenConfig) TableName() string {
	return "dct_token_configs"
}

func (OperationHistory) TableName() string {
	return "dct_operation_histories"
}

func (UploadJob) TableName() string {
	return "dct_upload_jobs"
}

func (NotificationConfig) TableName() string {
	return "dct_notification_configs"
}

// Supported drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config selects and configures the database backing the service
type Config struct {
	Driver string `json:"driver"`

	// SQLite
	Path string `json:"path"`

	// MySQL
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Validate validates the database configuration
func (c *Config) Validate() error {
	switch c.Driver {
	case "", DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
	case DriverMySQL:
		if c.Host == "" {
			return fmt.Errorf("host is required")
		}
		if c.Port == "" {
			return fmt.Errorf("port is required")
		}
		if c.User == "" {
			return fmt.Errorf("user is required")
		}
		if c.Database == "" {
			return fmt.Errorf("database is required")
		}
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}
	return nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&TokenConfig{},
		&OperationHistory{},
		&UploadJob{},
		&NotificationConfig{},
	)
}
