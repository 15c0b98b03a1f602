package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jellybridge/internal/codec"
	"jellybridge/internal/jellyfin"
	"jellybridge/internal/log"
	"jellybridge/internal/player"
	"jellybridge/internal/profile"
	"jellybridge/internal/server"
	"jellybridge/internal/store"
)

func main() {
	serverURL := os.Getenv("JELLYFIN_URL")
	token := os.Getenv("JELLYFIN_TOKEN")
	userID := os.Getenv("JELLYFIN_USER_ID")
	dbPath := envOr("DB_PATH", "./data/jellybridge.db")
	listenAddr := envOr("LISTEN_ADDR", ":7936")
	ffmpegBinary := envOr("FFMPEG_BINARY", "ffmpeg")
	corsOrigin := os.Getenv("CORS_ORIGIN")

	log.Configure(log.Config{Level: envOr("LOG_LEVEL", "info")})
	logger := log.WithComponent("main")

	if serverURL == "" || token == "" {
		logger.Fatal().Msg("JELLYFIN_URL and JELLYFIN_TOKEN are required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Fatal().Err(err).Msg("creating data directory")
	}
	st, err := store.New(dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("running migrations")
	}

	deviceID := deviceID(st)
	api := jellyfin.New(jellyfin.Config{
		BaseURL:  serverURL,
		Token:    token,
		UserID:   userID,
		DeviceID: deviceID,
	})

	inventory := codec.NewInventory(codec.FFmpeg{Binary: ffmpegBinary})
	builder := profile.NewBuilder(inventory)
	engine := player.NewHeadlessEngine()
	resolver := player.NewResolver(api)
	reporter := player.NewReporter(api, engine)

	prefs, err := st.GetPlaybackPreferences()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading playback preferences")
	}
	queue := player.NewQueueManager(resolver, builder, api, engine,
		player.WithReporter(reporter),
		player.WithProfileOptions(profile.Options{DirectPlayAss: prefs.DirectPlayAss}),
	)
	controller := player.NewController(queue, engine, player.WithStore(st))

	opts := []server.Option{
		server.WithStore(st),
		server.WithProfileBuilder(builder),
	}
	if corsOrigin != "" {
		opts = append(opts, server.WithCORSOrigin(corsOrigin))
	}
	srv := server.NewServer(controller, opts...)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info().Str("addr", listenAddr).Msg("jellybridge listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		if err := reporter.Run(ctx, queue); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		commands := jellyfin.NewSocket(api).Subscribe(ctx)
		for cmd := range commands {
			controller.HandleCommand(ctx, cmd)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	controller.Stop(context.Background())
	logger.Info().Msg("shut down")
}

// deviceID returns the stable device identifier, minting one on first run.
// The server keys transcode sessions and remote control routing on it.
func deviceID(st *store.Store) string {
	id, err := st.GetSetting("device.id")
	if err == nil && id != "" {
		return id
	}
	id = uuid.NewString()
	if err := st.SetSetting("device.id", id); err != nil {
		logger := log.WithComponent("main")
		logger.Warn().Err(err).Msg("failed to persist device id")
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
