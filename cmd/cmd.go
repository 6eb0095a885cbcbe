// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/playq/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the example configuration to --config",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rollback", Usage: "Roll back the most recent migration instead"},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the reference persistence server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist persistence server backed by SQLite",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides [server] host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides [server] port)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path (overrides [database] path)",
			},
		},
		Action: r.Serve,
	}
}

// playlistCommand handles playlist operations against the persistence server.
func playlistCommand(r *Runner) *cli.Command {
	jsonFlag := func() cli.Flag { return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"} }
	prettyFlag := func() cli.Flag { return &cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true} }

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "Only playlists owned by this user"},
					jsonFlag(),
					prettyFlag(),
				},
				Action: r.PlaylistList,
			},
			{
				Name:      "get",
				Usage:     "Show a playlist and its items",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{jsonFlag(), prettyFlag()},
				Action:    r.PlaylistGet,
			},
			{
				Name:      "create",
				Usage:     "Create an empty playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Usage: "Playlist description"},
					&cli.StringFlag{Name: "owner", Usage: "Owner user ID", Value: "local"},
					&cli.StringFlag{Name: "group", Usage: "Group the playlist is shared with"},
					jsonFlag(),
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "add",
				Usage:     "Append a media item",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Item title", Required: true},
					&cli.StringFlag{Name: "type", Usage: "music, video, social or podcast", Value: "music"},
					&cli.StringFlag{Name: "url", Usage: "Media URL"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds"},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:  "remove",
				Usage: "Remove a media item",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "item"},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:  "reorder",
				Usage: "Move the item at position <from> to position <to> (0-based)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "from"},
					&cli.StringArg{Name: "to"},
				},
				Action: r.PlaylistReorder,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to a file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   fmt.Sprintf("Export format (%s)", formatNames()),
						Value:   string(formatter.FormatJSON),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: <id>.<format>)",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "find",
				Usage: "Fuzzy-search a playlist's items by title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "query"},
				},
				Flags:  []cli.Flag{jsonFlag(), prettyFlag()},
				Action: r.PlaylistFind,
			},
			{
				Name:      "watch",
				Usage:     "Print every change pushed by the server until interrupted",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistWatch,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Action:  r.TUI,
	}
}

func formatNames() string {
	names := make([]string, len(formatter.Formats))
	for i, f := range formatter.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
