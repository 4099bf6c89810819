package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/vfa-khuongdv/drivectl"
	"github.com/vfa-khuongdv/drivectl/internal/config"
	"github.com/vfa-khuongdv/drivectl/internal/database"
	"github.com/vfa-khuongdv/drivectl/internal/notification"
)

var log = logging.Logger("drivectl-cli")

func main() {
	app := &cli.App{
		Name:    "drivectl",
		Usage:   "manage files in a Google Drive folder with a service account",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:    "key-file",
				Usage:   "service-account key file, overrides the config file",
				EnvVars: []string{"DRIVECTL_KEY_FILE"},
			},
			&cli.StringFlag{
				Name:  "folder",
				Usage: "target folder ID, overrides the config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "info",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.LevelFromString(c.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", c.String("log-level"), err)
			}
			logging.SetAllLoggers(level)
			return nil
		},
		Commands: []*cli.Command{
			uploadCmd,
			listCmd,
			getCmd,
			updateCmd,
			deleteCmd,
			downloadCmd,
			mkdirCmd,
			whoamiCmd,
			historyCmd,
			jobsCmd,
			notifyTestCmd,
			notificationsCmd,
			serveCmd,
			configCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

// loadConfig reads the config file and applies the global flags on top
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if !c.IsSet("config") {
		// the default location may not exist yet
		path = ""
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if c.IsSet("key-file") {
		cfg.KeyFile = c.String("key-file")
	}
	if c.IsSet("folder") {
		cfg.FolderID = c.String("folder")
	}
	return cfg, nil
}

func managerConfig(cfg *config.Config) *drivectl.Config {
	dbConfig := &database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		Host:     cfg.Database.Host,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
	}
	if cfg.Database.Port != 0 {
		dbConfig.Port = strconv.Itoa(cfg.Database.Port)
	}

	return &drivectl.Config{
		KeyFile:            cfg.KeyFile,
		Scopes:             cfg.Scopes,
		FolderID:           cfg.FolderID,
		DatabaseConfig:     dbConfig,
		RateLimit:          cfg.Drive.RateLimit,
		Burst:              cfg.Drive.Burst,
		PageSize:           cfg.Drive.PageSize,
		NotificationConfig: notificationConfigs(cfg),
		UploadJobs:         uploadJobConfigs(cfg),
	}
}

func notificationConfigs(cfg *config.Config) []drivectl.NotificationConfig {
	configs := make([]drivectl.NotificationConfig, 0, len(cfg.Notifications))
	for _, n := range cfg.Notifications {
		configs = append(configs, drivectl.NotificationConfig{
			Name:            n.Name,
			Channel:         notification.NotificationChannel(n.Channel),
			Config:          n.Config,
			NotifyOnSuccess: n.NotifyOnSuccess,
			NotifyOnError:   n.NotifyOnError,
			Enabled:         n.Enabled,
		})
	}
	return configs
}

func uploadJobConfigs(cfg *config.Config) []drivectl.UploadJobConfig {
	jobs := make([]drivectl.UploadJobConfig, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs = append(jobs, drivectl.UploadJobConfig{
			Name:           j.Name,
			LocalPath:      j.LocalPath,
			RemoteName:     j.RemoteName,
			MimeType:       j.MimeType,
			FolderID:       j.FolderID,
			Mode:           j.Mode,
			CronExpression: j.Schedule,
			Enabled:        !j.Disabled,
		})
	}
	return jobs
}

// withManager opens a manager for the duration of one command
func withManager(c *cli.Context, fn func(ctx context.Context, m *drivectl.Manager) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	manager, err := drivectl.NewManager(managerConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			log.Errorf("Error closing manager: %v", err)
		}
	}()

	if err := manager.Initialize(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return fn(ctx, manager)
}

// requireArgs checks the positional argument count
func requireArgs(c *cli.Context, n int, usage string) error {
	if c.Args().Len() != n {
		return fmt.Errorf("usage: drivectl %s %s", c.Command.Name, usage)
	}
	return nil
}
