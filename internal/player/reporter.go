package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"jellybridge/internal/jellyfin"
	"jellybridge/internal/log"
)

// progressInterval matches the cadence the web clients report at.
const progressInterval = 3 * time.Second

// SourceProvider exposes the currently playing media source.
type SourceProvider interface {
	CurrentSource() *MediaSource
}

// Reporter pushes playstate to the server: start and stop reports on queue
// transitions plus periodic progress while something is playing. All report
// failures are logged and swallowed; playback never depends on them.
type Reporter struct {
	api     *jellyfin.Client
	engine  Engine
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewReporter(api *jellyfin.Client, engine Engine) *Reporter {
	return &Reporter{
		api:    api,
		engine: engine,
		// One report per interval with a small burst for transition spikes.
		limiter: rate.NewLimiter(rate.Every(progressInterval), 2),
		log:     log.WithComponent("reporter"),
	}
}

// Run sends progress reports until the context is canceled.
func (r *Reporter) Run(ctx context.Context, sources SourceProvider) error {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			source := sources.CurrentSource()
			if source == nil || r.engine.State() == StateIdle {
				continue
			}
			if !r.limiter.Allow() {
				continue
			}
			state := r.state(source, r.engine.PositionMs()*TicksPerMillisecond)
			if err := r.api.ReportPlaybackProgress(ctx, state); err != nil {
				r.log.Warn().Err(err).Msg("failed to report playback progress")
			}
		}
	}
}

func (r *Reporter) ReportStart(ctx context.Context, source *MediaSource) {
	state := r.state(source, source.StartTimeMs*TicksPerMillisecond)
	if err := r.api.ReportPlaybackStart(ctx, state); err != nil {
		r.log.Warn().Err(err).Msg("failed to report playback start")
	}
}

func (r *Reporter) ReportStopped(ctx context.Context, source *MediaSource, positionTicks int64) {
	state := r.state(source, positionTicks)
	if err := r.api.ReportPlaybackStopped(ctx, state); err != nil {
		r.log.Warn().Err(err).Msg("failed to report playback stopped")
	}
}

func (r *Reporter) state(source *MediaSource, positionTicks int64) jellyfin.PlaybackState {
	state := jellyfin.PlaybackState{
		ItemID:        source.ItemID.String(),
		MediaSourceID: source.SourceInfo.ID,
		PlaySessionID: source.PlaySessionID,
		PositionTicks: positionTicks,
		IsPaused:      !r.engine.Playing(),
		PlayMethod:    string(source.PlayMethod),
		CanSeek:       source.RunTimeMs() > 0,
	}
	if source.SelectedAudioStream != nil {
		index := source.SelectedAudioStream.Index
		state.AudioStreamIndex = &index
	}
	if source.SelectedSubtitleStream != nil {
		index := source.SelectedSubtitleStream.Index
		state.SubtitleStreamIndex = &index
	}
	return state
}
