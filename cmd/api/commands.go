package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters/sqlite"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/config"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/history"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/logging"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Print a user's transfer history, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "User ID whose transfers to list",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: printHistory,
	}
}

func printHistory(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	logger := logging.New(cmd.Root().ErrWriter, cfg.Server.LogLevel)

	store, closeStore, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	records, err := history.NewRecorder(store).List(ctx, cmd.String("user"))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return writeHistoryTable(out, records)
}

func writeHistoryTable(w io.Writer, records []domain.HistoryRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No transfers found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tROUTE\tSOURCE\tTARGET\tSONGS\tSTATUS")
	for _, r := range records {
		status := string(r.Status)
		if r.ErrorKind != "" {
			status += " (" + string(r.ErrorKind) + ")"
		}
		target := r.TargetPlaylistID
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%s\t%s\t%d\t%s\n",
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.SourcePlatform, r.TargetPlatform,
			r.SourcePlaylistID, target,
			r.SongsTransferred, status,
		)
	}
	return tw.Flush()
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending history database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: migrate,
	}
}

func migrate(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	logger := logging.New(cmd.Root().ErrWriter, cfg.Server.LogLevel)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("rollback") {
		if err := sqlite.RollbackMigration(db); err != nil {
			return err
		}
		logger.Info("rolled back latest migration", "path", cfg.History.Path)
		return nil
	}

	applied, err := sqlite.RunMigrations(db)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "applied", applied, "path", cfg.History.Path)
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration helpers",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default configuration to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "config.toml",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path := cmd.String("output")
					if err := config.CreateConfigFile(path); err != nil {
						return err
					}
					fmt.Fprintf(cmd.Root().Writer, "Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}
