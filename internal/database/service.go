package database

import (
	"errors"
	"fmt"
	"net"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	logging "github.com/ipfs/go-log/v2"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logging.Logger("database")

type Service struct {
	db *gorm.DB
}

// NewService opens the configured database and migrates the schema
func NewService(config *Config) (*Service, error) {
	if config == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverMySQL:
		dialector = mysql.Open(MySQLDSN(config))
	default:
		dialector = sqlite.Open(config.Path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driverName(config.Driver), err)
	}

	// every new :memory: connection is a fresh database
	if config.Driver != DriverMySQL && config.Path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	service, err := NewServiceWithDB(db)
	if err != nil {
		return nil, err
	}

	log.Infof("Opened %s database", driverName(config.Driver))
	return service, nil
}

// NewServiceWithDB wraps an already opened connection
func NewServiceWithDB(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Service{db: db}, nil
}

// MySQLDSN builds the driver DSN for a MySQL configuration
func MySQLDSN(config *Config) string {
	cfg := gomysql.NewConfig()
	cfg.User = config.User
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Host, config.Port)
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func driverName(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}

// SaveTokenConfig saves or updates the cached token of a service account
func (s *Service) SaveTokenConfig(config *TokenConfig) error {
	var existing TokenConfig
	if err := s.db.Where("client_email = ?", config.ClientEmail).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.Create(config).Error
		}
		return err
	}

	config.ID = existing.ID
	config.CreatedAt = existing.CreatedAt
	return s.db.Save(config).Error
}

// GetTokenConfig retrieves the cached token of a service account
func (s *Service) GetTokenConfig(clientEmail string) (*TokenConfig, error) {
	var config TokenConfig
	if err := s.db.Where("client_email = ?", clientEmail).First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveOperationHistory saves an operation history record
func (s *Service) SaveOperationHistory(history *OperationHistory) error {
	return s.db.Create(history).Error
}

// UpdateOperationHistory updates an operation history record
func (s *Service) UpdateOperationHistory(history *OperationHistory) error {
	return s.db.Save(history).Error
}

// GetOperationHistory retrieves operation history with pagination, newest first
func (s *Service) GetOperationHistory(limit, offset int) ([]OperationHistory, error) {
	var history []OperationHistory
	err := s.db.Order("started_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&history).Error
	return history, err
}

// SaveUploadJob creates or updates an upload job by name
func (s *Service) SaveUploadJob(job *UploadJob) error {
	var existing UploadJob
	if err := s.db.Where("name = ?", job.Name).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.Create(job).Error
		}
		return err
	}

	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt
	// keep the remembered target unless the caller pins one
	if job.FileID == "" {
		job.FileID = existing.FileID
	}
	return s.db.Save(job).Error
}

// GetUploadJobs retrieves all enabled upload jobs
func (s *Service) GetUploadJobs() ([]UploadJob, error) {
	var jobs []UploadJob
	err := s.db.Where("enabled = ?", true).Order("name").Find(&jobs).Error
	return jobs, err
}

// GetUploadJobByName retrieves an upload job by name
func (s *Service) GetUploadJobByName(name string) (*UploadJob, error) {
	var job UploadJob
	if err := s.db.Where("name = ?", name).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateUploadJob updates an upload job
func (s *Service) UpdateUploadJob(job *UploadJob) error {
	return s.db.Save(job).Error
}

// DeleteUploadJob deletes an upload job by name
func (s *Service) DeleteUploadJob(name string) error {
	return s.db.Where("name = ?", name).Delete(&UploadJob{}).Error
}

// GetAllUploadJobs retrieves upload jobs including disabled ones
func (s *Service) GetAllUploadJobs() ([]UploadJob, error) {
	var jobs []UploadJob
	err := s.db.Order("name").Find(&jobs).Error
	return jobs, err
}

// SaveNotificationConfig saves notification configuration
func (s *Service) SaveNotificationConfig(config *NotificationConfig) error {
	var existing NotificationConfig
	if err := s.db.Where("name = ?", config.Name).First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.db.Create(config).Error
		}
		return err
	}

	config.ID = existing.ID
	config.CreatedAt = existing.CreatedAt
	return s.db.Save(config).Error
}

// GetNotificationConfigs retrieves all notification configurations
func (s *Service) GetNotificationConfigs() ([]NotificationConfig, error) {
	var configs []NotificationConfig
	err := s.db.Order("name").Find(&configs).Error
	return configs, err
}

// GetEnabledNotificationConfigs retrieves enabled notification configurations
func (s *Service) GetEnabledNotificationConfigs() ([]NotificationConfig, error) {
	var configs []NotificationConfig
	err := s.db.Where("enabled = ?", true).Find(&configs).Error
	return configs, err
}

// GetNotificationConfigByName retrieves notification configuration by name
func (s *Service) GetNotificationConfigByName(name string) (*NotificationConfig, error) {
	var config NotificationConfig
	if err := s.db.Where("name = ?", name).First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

// DeleteNotificationConfig deletes notification configuration by name
func (s *Service) DeleteNotificationConfig(name string) error {
	return s.db.Where("name = ?", name).Delete(&NotificationConfig{}).Error
}

// Close closes the database connection
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
