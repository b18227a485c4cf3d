package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	_ "github.com/jpp0ca/PlaylistTransfer-API/docs"
)

// @title			PlaylistTransfer API
// @version		1.0
// @description	API for transferring playlists between streaming services (Spotify, YouTube Music).
// @description	Tracks are matched concurrently and written to the destination in batches.

// @contact.name	PlaylistTransfer API Support
// @license.name	MIT

// @host		localhost:8080
// @BasePath	/

// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Bearer token for the streaming provider (e.g. "Bearer your_token_here")
func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal("application error", "err", err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "playlist-transfer",
		Usage:   "Transfer playlists between Spotify & YouTube Music",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file (defaults to $CONFIG_FILE)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			serveCommand(),
			historyCommand(),
			migrateCommand(),
			configCommand(),
		},
	}
}
