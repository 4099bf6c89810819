package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vfa-khuongdv/drivectl"
	"github.com/vfa-khuongdv/drivectl/internal/config"
	"github.com/vfa-khuongdv/drivectl/internal/scheduler"
)

var historyCmd = &cli.Command{
	Name:  "history",
	Usage: "show recorded operations, newest first",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: 20},
		&cli.IntFlag{Name: "offset"},
	},
	Action: func(c *cli.Context) error {
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			history, err := m.GetOperationHistory(c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			for _, h := range history {
				fmt.Printf("%s\t%-8s\t%-11s\t%s\t%s\t%s\n",
					h.StartedAt.Format(time.RFC3339), h.Operation, h.Status, h.FileID, h.FileName, h.ErrorMsg)
			}
			return nil
		})
	},
}

var jobsCmd = &cli.Command{
	Name:  "jobs",
	Usage: "inspect and run scheduled uploads",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list configured upload jobs",
			Action: func(c *cli.Context) error {
				return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
					jobs, err := m.GetUploadJobs()
					if err != nil {
						return err
					}
					for _, job := range jobs {
						next := "disabled"
						if job.Enabled {
							times, err := scheduler.GetNextRunTimes(job.CronSchedule, 1)
							if err == nil && len(times) > 0 {
								next = times[0].Format(time.RFC3339)
							}
						}
						fmt.Printf("%s\t%s\t%s\t%s\t%s\n", job.Name, job.Mode, job.CronSchedule, job.LocalPath, next)
					}
					return nil
				})
			},
		},
		{
			Name:      "run",
			Usage:     "run an upload job now",
			ArgsUsage: "<name>",
			Action: func(c *cli.Context) error {
				if err := requireArgs(c, 1, "run <name>"); err != nil {
					return err
				}
				return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
					return m.RunUploadJobNow(ctx, c.Args().First())
				})
			},
		},
		{
			Name:      "next",
			Usage:     "show the next run times of a cron expression",
			ArgsUsage: "<cron-expression>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "count", Value: 5},
			},
			Action: func(c *cli.Context) error {
				if err := requireArgs(c, 1, "next <cron-expression>"); err != nil {
					return err
				}
				times, err := scheduler.GetNextRunTimes(c.Args().First(), c.Int("count"))
				if err != nil {
					return err
				}
				for _, t := range times {
					fmt.Println(t.Format(time.RFC3339))
				}
				return nil
			},
		},
	},
}

var notifyTestCmd = &cli.Command{
	Name:      "notify-test",
	Usage:     "send a test message through one notification config, or every enabled one",
	ArgsUsage: "[name]",
	Action: func(c *cli.Context) error {
		if c.Args().Len() > 1 {
			return fmt.Errorf("usage: drivectl notify-test [name]")
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			if c.Args().Present() {
				return m.TestNotification(ctx, c.Args().First())
			}

			results, err := m.TestNotifications(ctx)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.Success {
					status = r.Error
					failed++
				}
				fmt.Printf("%s\t%s\t%s\n", r.ConfigName, r.Channel, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d notifications failed", failed, len(results))
			}
			return nil
		})
	},
}

var notificationsCmd = &cli.Command{
	Name:  "notifications",
	Usage: "list notification configs",
	Action: func(c *cli.Context) error {
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			configs, err := m.GetNotificationConfigs()
			if err != nil {
				return err
			}
			for _, n := range configs {
				fmt.Printf("%s\t%s\tenabled=%t\tsuccess=%t\terror=%t\n",
					n.Name, n.Channel, n.Enabled, n.NotifyOnSuccess, n.NotifyOnError)
			}
			return nil
		})
	},
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run scheduled uploads until interrupted, reloading the config file on change",
	Action: func(c *cli.Context) error {
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			m.StartScheduler()
			for _, job := range m.GetScheduledJobs() {
				log.Infof("Scheduled '%s' (%s), next run %s", job.Name, job.Schedule, job.Next.Format(time.RFC3339))
			}

			path := c.String("config")
			if _, err := os.Stat(path); err != nil {
				log.Warnf("Config file %s not found, reload disabled", path)
				<-ctx.Done()
				return nil
			}

			return config.Watch(ctx, path, func(cfg *config.Config) {
				if err := m.Reload(notificationConfigs(cfg), uploadJobConfigs(cfg)); err != nil {
					log.Errorf("Failed to apply config change: %v", err)
				}
			})
		})
	},
}

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "manage the config file",
	Subcommands: []*cli.Command{
		{
			Name:  "init",
			Usage: "write a default config file",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
			},
			Action: func(c *cli.Context) error {
				path := c.String("config")
				if _, err := os.Stat(path); err == nil && !c.Bool("force") {
					return fmt.Errorf("%s already exists, use --force to overwrite", path)
				}

				cfg := config.Default()
				if c.IsSet("key-file") {
					cfg.KeyFile = c.String("key-file")
				}
				if c.IsSet("folder") {
					cfg.FolderID = c.String("folder")
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			},
		},
		{
			Name:  "path",
			Usage: "print the config file path",
			Action: func(c *cli.Context) error {
				fmt.Println(c.String("config"))
				return nil
			},
		},
	},
}
