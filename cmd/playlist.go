package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/playq/internal/formatter"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/player"
	"github.com/desertthunder/playq/internal/services"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/desertthunder/playq/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists playlists, optionally filtered by owner.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.api.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	if owner := cmd.String("owner"); owner != "" {
		filtered := playlists[:0]
		for _, p := range playlists {
			if p.OwnerID == owner {
				filtered = append(filtered, p)
			}
		}
		playlists = filtered
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%s  %s  [%d items, %s]\n", p.ID, p.Name, p.Len(), shared.FormatDuration(p.TotalDuration()))
	}
	return nil
}

// PlaylistGet prints one playlist with its items.
func (r *Runner) PlaylistGet(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	p, err := r.api.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportToText(p)
	if err != nil {
		return err
	}
	return r.writePlain("%s", text)
}

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	req := services.CreatePlaylistRequest{
		Name:        name,
		Description: cmd.String("description"),
		OwnerID:     cmd.String("owner"),
	}
	if group := cmd.String("group"); group != "" {
		req.GroupID = &group
	}

	p, err := r.api.CreatePlaylist(ctx, req)
	if err != nil {
		return err
	}
	r.logger.Info("playlist created", "id", p.ID)

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", p.Name, p.ID)
}

// PlaylistAdd appends a media item through the sync coordinator.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	mediaType, err := models.ParseMediaType(cmd.String("type"))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	item := models.MediaItem{
		Type:     mediaType,
		Title:    cmd.String("title"),
		URL:      cmd.String("url"),
		Duration: int(cmd.Int("duration")),
	}

	return r.edit(ctx, id, player.Event{Kind: player.AddMedia, Item: item})
}

// PlaylistRemove removes a media item through the sync coordinator.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	itemID, err := requireArg(cmd, "item")
	if err != nil {
		return err
	}

	return r.edit(ctx, id, player.Event{Kind: player.RemoveMedia, ItemID: itemID})
}

// PlaylistReorder moves one item through the sync coordinator.
func (r *Runner) PlaylistReorder(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	from, err := intArg(cmd, "from")
	if err != nil {
		return err
	}
	to, err := intArg(cmd, "to")
	if err != nil {
		return err
	}

	return r.edit(ctx, id, player.Event{Kind: player.ReorderRequested, Source: from, Dest: to})
}

// edit loads the playlist into a fresh player, dispatches ev and waits for the server's verdict.
func (r *Runner) edit(ctx context.Context, playlistID string, ev player.Event) error {
	p, coord, err := r.newPlayer()
	if err != nil {
		return err
	}

	if _, err := p.Dispatch(ctx, player.Event{Kind: player.SetPlaylist, PlaylistID: playlistID}); err != nil {
		return err
	}

	m, err := p.Dispatch(ctx, ev)
	if err != nil {
		return err
	}

	state, err := m.Wait(ctx)
	if waitErr := coord.Wait(ctx); waitErr != nil && err == nil {
		err = waitErr
	}

	switch state {
	case tasks.StateConfirmed:
		r.logger.Info("edit confirmed", "event", ev.Kind, "playlist", playlistID, "seq", m.Seq)
	case tasks.StateSuperseded:
		r.logger.Warn("playlist updated by another collaborator, server ordering kept", "playlist", playlistID)
		return err
	default:
		return err
	}

	current := p.State().CurrentPlaylist
	r.writePlain("✓ %s\n", strings.ToLower(ev.Kind.String()))
	for _, item := range current.MediaItems {
		r.writePlain("  %d. %s\n", item.Position, item.Title)
	}
	return nil
}

// PlaylistExport writes a playlist to a file in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	p, err := r.api.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(p, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("playlist exported", "id", id, "format", format, "path", path)
	return r.writePlain("✓ Exported %q to %s\n", p.Name, path)
}

// PlaylistFind fuzzy-searches item titles.
func (r *Runner) PlaylistFind(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}

	p, err := r.api.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}

	matches := models.SearchItems(p.MediaItems, shared.NormalizeTitle(query))
	if cmd.Bool("json") {
		items := make([]models.MediaItem, len(matches))
		for i, m := range matches {
			items[i] = m.Item
		}
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	if len(matches) == 0 {
		return r.writePlain("No items match %q\n", query)
	}
	for _, m := range matches {
		r.writePlain("%d. %s [%s]\n", m.Item.Position, m.Item.Title, shared.FormatDuration(m.Item.Duration))
	}
	return nil
}

// PlaylistWatch prints each snapshot pushed by the change feed until ctx ends.
func (r *Runner) PlaylistWatch(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	r.logger.Info("watching playlist", "id", id)
	return r.api.Watch(ctx, id, func(p *models.Playlist) {
		r.writePlain("%s: %s\n", p.UpdatedAt.Format("15:04:05"), strings.Join(itemTitles(p.MediaItems), " | "))
	})
}

func itemTitles(items []models.MediaItem) []string {
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	return titles
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return v, nil
}

func intArg(cmd *cli.Command, name string) (int, error) {
	v, err := requireArg(cmd, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: <%s> must be an integer, got %q", shared.ErrInvalidArgument, name, v)
	}
	return n, nil
}
