package player

import (
	"context"

	"github.com/rs/zerolog"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/log"
	"jellybridge/internal/store"
)

// PlaybackStatus is a snapshot of the current session for the status API.
type PlaybackStatus struct {
	State       string `json:"state"`
	Playing     bool   `json:"playing"`
	ItemName    string `json:"itemName,omitempty"`
	PlayMethod  string `json:"playMethod,omitempty"`
	PositionMs  int64  `json:"positionMs"`
	BufferedMs  int64  `json:"bufferedMs"`
	DurationMs  int64  `json:"durationMs"`
	HasNext     bool   `json:"hasNext"`
	HasPrevious bool   `json:"hasPrevious"`
}

// Controller translates remote control commands and API calls into queue and
// engine operations. It also keeps resume positions up to date.
type Controller struct {
	queue  *QueueManager
	engine Engine
	store  *store.Store
	log    zerolog.Logger
}

type ControllerOption func(*Controller)

// WithStore enables resume position persistence.
func WithStore(st *store.Store) ControllerOption {
	return func(c *Controller) { c.store = st }
}

func NewController(queue *QueueManager, engine Engine, opts ...ControllerOption) *Controller {
	c := &Controller{
		queue:  queue,
		engine: engine,
		log:    log.WithComponent("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleCommand dispatches one remote control command. Unplayable content
// and network failures are logged; the command channel must keep draining.
func (c *Controller) HandleCommand(ctx context.Context, cmd jellyfin.RemoteCommand) {
	switch cmd.Type {
	case jellyfin.CommandPlay:
		opts := ParsePlayOptions(cmd.Data)
		if opts == nil {
			return
		}
		if err := c.Play(ctx, *opts); err != nil {
			c.log.Error().Err(err).Msg("play command failed")
		}
	case jellyfin.CommandPlayPause:
		if c.engine.Playing() {
			c.Pause()
		} else {
			c.engine.Resume()
		}
	case jellyfin.CommandPause:
		c.Pause()
	case jellyfin.CommandUnpause:
		c.engine.Resume()
	case jellyfin.CommandStop:
		c.Stop(ctx)
	case jellyfin.CommandSeek:
		c.engine.SeekTo(cmd.SeekPositionTicks / TicksPerMillisecond)
	case jellyfin.CommandNextTrack:
		if _, err := c.queue.Next(ctx); err != nil {
			c.log.Error().Err(err).Msg("next track failed")
		}
	case jellyfin.CommandPreviousTrack:
		if _, err := c.queue.Previous(ctx); err != nil {
			c.log.Error().Err(err).Msg("previous track failed")
		}
	}
}

// Play starts playback. An intent without an explicit start position resumes
// from the stored position for its target item, if any.
func (c *Controller) Play(ctx context.Context, opts PlayOptions) error {
	if opts.StartPositionTicks == nil && c.store != nil {
		if itemID, err := targetItem(opts); err == nil {
			ticks, ok, err := c.store.PlaybackPosition(itemID.String())
			if err != nil {
				c.log.Warn().Err(err).Msg("failed to load resume position")
			} else if ok {
				opts.StartPositionTicks = &ticks
			}
		}
	}
	if err := c.queue.StartPlayback(ctx, opts, true); err != nil {
		return err
	}
	// Engines without their own demuxer clock take the duration from the
	// resolved source.
	if setter, ok := c.engine.(interface{ SetDuration(durationMs int64) }); ok {
		if source := c.queue.CurrentSource(); source != nil {
			setter.SetDuration(source.RunTimeMs())
		}
	}
	return nil
}

func (c *Controller) Pause() {
	c.engine.Pause()
	c.savePosition()
}

func (c *Controller) Resume() {
	c.engine.Resume()
}

func (c *Controller) SeekTo(positionMs int64) {
	c.engine.SeekTo(positionMs)
}

// Stop ends the session, recording the final position for resume.
func (c *Controller) Stop(ctx context.Context) {
	c.savePosition()
	c.queue.Stop(ctx)
}

func (c *Controller) Next(ctx context.Context) (bool, error) {
	return c.queue.Next(ctx)
}

func (c *Controller) Previous(ctx context.Context) (bool, error) {
	return c.queue.Previous(ctx)
}

func (c *Controller) SetBitrate(ctx context.Context, bitrate int) error {
	return c.queue.ChangeBitrate(ctx, bitrate)
}

func (c *Controller) SelectAudioTrack(ctx context.Context, streamIndex int) (bool, error) {
	return c.queue.SelectAudioTrack(ctx, streamIndex)
}

func (c *Controller) SelectSubtitleTrack(ctx context.Context, streamIndex int) (bool, error) {
	return c.queue.SelectSubtitleTrack(ctx, streamIndex)
}

func (c *Controller) Status() PlaybackStatus {
	status := PlaybackStatus{
		State:       stateName(c.engine.State()),
		Playing:     c.engine.Playing(),
		PositionMs:  c.engine.PositionMs(),
		BufferedMs:  c.engine.BufferedMs(),
		DurationMs:  c.engine.DurationMs(),
		HasNext:     c.queue.HasNext(),
		HasPrevious: c.queue.HasPrevious(),
	}
	if source := c.queue.CurrentSource(); source != nil {
		status.ItemName = source.Name()
		status.PlayMethod = string(source.PlayMethod)
	}
	return status
}

func (c *Controller) savePosition() {
	if c.store == nil {
		return
	}
	source := c.queue.CurrentSource()
	if source == nil {
		return
	}
	ticks := c.engine.PositionMs() * TicksPerMillisecond
	if err := c.store.SavePlaybackPosition(source.ItemID.String(), ticks); err != nil {
		c.log.Warn().Err(err).Msg("failed to save resume position")
	}
}

func stateName(state State) string {
	switch state {
	case StateBuffering:
		return "buffering"
	case StateReady:
		return "ready"
	case StateEnded:
		return "ended"
	default:
		return "idle"
	}
}
