package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/playq/internal/formatter"
	"github.com/desertthunder/playq/internal/models"
	"github.com/desertthunder/playq/internal/player"
	"github.com/desertthunder/playq/internal/services"
	"github.com/desertthunder/playq/internal/shared"
	"github.com/desertthunder/playq/internal/ui"
	"github.com/urfave/cli/v3"
)

const defaultTUILog = "./tmp/playq-tui.log"

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	path := r.config.Log.File
	if path == "" {
		path = defaultTUILog
	}
	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	if level, err := shared.ParseLogLevel(r.config.Log.Level); err == nil {
		shared.SetLogLevel(fileLogger, level)
	}
	r.SetLogger(fileLogger)

	if err := r.api.Health(ctx); err != nil {
		return fmt.Errorf("persistence API unreachable at %s: %w", r.api.BaseURL(), err)
	}

	p, coord, err := r.newPlayer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := newFollower(r.api, p, r.logger)
	defer f.Close()

	model := ui.NewModel(ctx, r.api, p)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	r.logger.Debug("session ended", "state", formatter.FormatQueueState(p.State()))

	cancel()
	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	return coord.Wait(waitCtx)
}

// watcher is the change feed as seen by [follower].
type watcher interface {
	Watch(ctx context.Context, id string, fn func(*models.Playlist)) error
}

// follower keeps one change feed open for the player's current playlist and feeds collaborator
// edits into it. Switching playlists cancels the old feed.
type follower struct {
	api     watcher
	player  *player.Player
	logger  *log.Logger
	backoff time.Duration

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	unsub   func()
}

func newFollower(api watcher, p *player.Player, logger *log.Logger) *follower {
	f := &follower{api: api, player: p, logger: logger, backoff: time.Second}
	f.unsub = p.Subscribe(func(st models.QueueState) {
		id := ""
		if st.CurrentPlaylist != nil {
			id = st.CurrentPlaylist.ID
		}
		f.follow(id)
	})
	return f
}

// follow starts watching id unless it is already the watched playlist.
func (f *follower) follow(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if id == f.current {
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.current = id
	if id == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.wg.Add(1)
	go f.watch(ctx, id)
}

func (f *follower) watch(ctx context.Context, id string) {
	defer f.wg.Done()

	delay := f.backoff
	for {
		err := f.api.Watch(ctx, id, func(p *models.Playlist) {
			if f.player.ApplyRemote(p) {
				f.logger.Info("applied collaborator change", "playlist", id)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil && !services.IsWatchClosed(err) {
			f.logger.Error("change feed stopped", "playlist", id, "error", err)
			return
		}

		f.logger.Warn("change feed closed, reconnecting", "playlist", id, "in", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, 30*time.Second)
	}
}

// Close stops the active feed and waits for it to exit.
func (f *follower) Close() {
	f.unsub()
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.current = ""
	f.mu.Unlock()
	f.wg.Wait()
}
