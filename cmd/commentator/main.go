package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RaceCommentator/internal/adapter/chat/twitch"
	"RaceCommentator/internal/ai"
	"RaceCommentator/internal/app/session"
	"RaceCommentator/internal/config"
	"RaceCommentator/internal/metrics"
	"RaceCommentator/internal/narration"
	"RaceCommentator/internal/race"
	"RaceCommentator/internal/service/tts"
	"RaceCommentator/internal/telemetry"
	"RaceCommentator/internal/telemetry/wsfeed"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.DebugMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow(
		"Starting commentator",
		"DebugMode", cfg.DebugMode,
		"llm", cfg.LLMService,
		"tts", cfg.TTSService,
		"telemetry", cfg.Telemetry.Source,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Commentator stopped with error", "error", err)
		os.Exit(1)
	}
	sugar.Infow("Commentator stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) error {
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	feed := telemetry.NewFeed()
	var (
		sources []telemetry.Source
		camera  race.Camera
	)
	switch cfg.Telemetry.Source {
	case "websocket":
		client := wsfeed.New(cfg.Telemetry.WebsocketURL, cfg.Telemetry.AuthToken, feed, m, logger)
		sources = append(sources, client)
		if cfg.CameraFocus {
			camera = client
		}
		if cfg.CameraMode != "" {
			client.SetMode(cfg.CameraMode)
		}
		if m != nil {
			// HTTP приёмник нужен ради /metrics
			sources = append(sources, telemetry.NewReceiver(cfg.Telemetry, feed, m, logger))
		}
	default:
		sources = append(sources, telemetry.NewReceiver(cfg.Telemetry, feed, m, logger))
	}

	gen, err := ai.NewGenerator(cfg, logger)
	if err != nil {
		return err
	}
	speaker, err := tts.New(cfg, logger)
	if err != nil {
		return err
	}

	var sinks []narration.Sink
	if announcer, tcfg, ok := twitch.NewAnnouncer(logger, twitch.Config{
		Username:      cfg.TwitchUsername,
		OAuth:         cfg.TwitchOAuthToken,
		Channel:       cfg.TwitchChannel,
		RatePerMinute: cfg.TwitchRatePerMinute,
	}); ok {
		sinks = append(sinks, announcer)
		go func() {
			if err := twitch.Run(ctx, logger, tcfg, announcer); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warnw("Twitch mirror stopped", "error", err)
			}
		}()
	}

	opts := narration.Options{
		StaleAfter: cfg.StaleAfter,
		Timeout:    cfg.NarrationTimeout,
		Renderer:   narration.NewRenderer(cfg.PromptSuffix),
		Camera:     camera,
		Sinks:      sinks,
	}
	if m != nil {
		opts.Recorder = m
	}
	sched := narration.New(gen, speaker, logger, opts)

	raceOpts := race.DefaultOptions()
	raceOpts.FastestLapWarmup = cfg.FastestLapWarmupLaps
	raceOpts.ShortInterval = cfg.ShortIntervalSeconds
	state := race.New(feed, logger, raceOpts)

	for _, src := range sources {
		if err := src.Start(ctx); err != nil {
			return err
		}
		logger.Infow("Telemetry source started", "addr", src.Addr())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeoutCause(context.Background(), 5*time.Second, errors.New("shutdown timeout"))
		defer cancel()
		for _, src := range sources {
			if err := src.Stop(shutdownCtx); err != nil {
				logger.Warnw("Telemetry source stop failed", "addr", src.Addr(), "error", err)
			}
		}
	}()

	sess := session.New(state, sched, logger, session.Options{
		FrameInterval:  cfg.FrameInterval,
		SampleInterval: cfg.SampleInterval,
	})
	return sess.Run(ctx)
}
