package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/vfa-khuongdv/drivectl"
	"github.com/vfa-khuongdv/drivectl/pkg/gdrive"
)

func printFile(f *gdrive.File) {
	fmt.Printf("%s\t%s\t%s\t%d\n", f.ID, f.Name, f.MimeType, f.Size)
}

var uploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "upload a local file into the folder",
	ArgsUsage: "<local-path>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "remote file name, defaults to the local base name"},
		&cli.StringFlag{Name: "mime-type", Usage: "content type, detected from the extension by default"},
		&cli.StringFlag{Name: "description", Usage: "file description"},
	},
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 1, "upload <local-path>"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			file, err := m.UploadFile(ctx, gdrive.UploadRequest{
				LocalPath:   c.Args().First(),
				Name:        c.String("name"),
				MimeType:    c.String("mime-type"),
				Description: c.String("description"),
			})
			if err != nil {
				return err
			}
			fmt.Println(file.ID)
			return nil
		})
	},
}

var listCmd = &cli.Command{
	Name:  "list",
	Usage: "list files in the folder",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "page-size", Usage: "files per page"},
		&cli.StringFlag{Name: "page-token", Usage: "token from a previous page"},
		&cli.StringFlag{Name: "query", Usage: "extra Drive query, e.g. \"name contains 'report'\""},
		&cli.StringFlag{Name: "order-by", Usage: "sort order, e.g. \"modifiedTime desc\""},
		&cli.BoolFlag{Name: "no-trashed", Usage: "leave out files in the trash"},
		&cli.BoolFlag{Name: "all", Usage: "follow page tokens and list every file"},
	},
	Action: func(c *cli.Context) error {
		opts := gdrive.ListOptions{
			PageSize:       c.Int64("page-size"),
			PageToken:      c.String("page-token"),
			Query:          c.String("query"),
			OrderBy:        c.String("order-by"),
			ExcludeTrashed: c.Bool("no-trashed"),
		}

		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			if c.Bool("all") {
				files, err := m.ListAllFiles(ctx, opts)
				if err != nil {
					return err
				}
				for _, f := range files {
					printFile(f)
				}
				return nil
			}

			list, err := m.ListFiles(ctx, opts)
			if err != nil {
				return err
			}
			for _, f := range list.Files {
				printFile(f)
			}
			if list.NextPageToken != "" {
				fmt.Printf("next page token: %s\n", list.NextPageToken)
			}
			return nil
		})
	},
}

var getCmd = &cli.Command{
	Name:      "get",
	Usage:     "show file metadata",
	ArgsUsage: "<file-id>",
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 1, "get <file-id>"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			file, err := m.GetFileMetadata(ctx, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("id:       %s\n", file.ID)
			fmt.Printf("name:     %s\n", file.Name)
			fmt.Printf("mimeType: %s\n", file.MimeType)
			fmt.Printf("size:     %d\n", file.Size)
			fmt.Printf("modified: %s\n", file.ModifiedTime)
			if file.WebViewLink != "" {
				fmt.Printf("link:     %s\n", file.WebViewLink)
			}
			return nil
		})
	},
}

var updateCmd = &cli.Command{
	Name:      "update",
	Usage:     "rename a file and/or replace its content",
	ArgsUsage: "<file-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "new file name"},
		&cli.StringFlag{Name: "file", Usage: "local file with the new content"},
		&cli.StringFlag{Name: "mime-type", Usage: "content type of the new content"},
	},
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 1, "update <file-id> [--name NAME] [--file PATH]"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			file, err := m.UpdateFile(ctx, c.Args().First(), gdrive.UpdateRequest{
				Name:      c.String("name"),
				LocalPath: c.String("file"),
				MimeType:  c.String("mime-type"),
			})
			if err != nil {
				return err
			}
			printFile(file)
			return nil
		})
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "permanently delete a file",
	ArgsUsage: "<file-id>",
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 1, "delete <file-id>"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			return m.DeleteFile(ctx, c.Args().First())
		})
	},
}

var downloadCmd = &cli.Command{
	Name:      "download",
	Usage:     "download a file's content",
	ArgsUsage: "<file-id> <destination>",
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 2, "download <file-id> <destination>"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			written, err := m.DownloadFile(ctx, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			fmt.Printf("%d bytes written to %s\n", written, c.Args().Get(1))
			return nil
		})
	},
}

var mkdirCmd = &cli.Command{
	Name:      "mkdir",
	Usage:     "create a folder",
	ArgsUsage: "<name>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "parent", Usage: "parent folder ID, defaults to the target folder"},
		&cli.BoolFlag{Name: "reuse", Usage: "return an existing folder with the same name instead of creating one"},
	},
	Action: func(c *cli.Context) error {
		if err := requireArgs(c, 1, "mkdir <name>"); err != nil {
			return err
		}
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			create := m.CreateFolder
			if c.Bool("reuse") {
				create = m.EnsureFolder
			}

			folder, err := create(ctx, c.Args().First(), c.String("parent"))
			if err != nil {
				return err
			}
			fmt.Println(folder.ID)
			return nil
		})
	},
}

var whoamiCmd = &cli.Command{
	Name:  "whoami",
	Usage: "show the service account behind the key",
	Action: func(c *cli.Context) error {
		return withManager(c, func(ctx context.Context, m *drivectl.Manager) error {
			account, err := m.WhoAmI(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s>\n", account.DisplayName, account.EmailAddress)
			return nil
		})
	},
}
