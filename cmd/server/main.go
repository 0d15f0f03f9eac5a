package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	router "github.com/OmarNassar1127/ai-transcriber/internal/adapters/http"
	"github.com/OmarNassar1127/ai-transcriber/internal/adapters/session"
	"github.com/OmarNassar1127/ai-transcriber/internal/adapters/stt"
	"github.com/OmarNassar1127/ai-transcriber/internal/app"
	"github.com/OmarNassar1127/ai-transcriber/internal/app/orch"
	"github.com/OmarNassar1127/ai-transcriber/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Str("module", "main").Msg("no .env file")
	}

	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Str("module", "main").Msg("bad flags")
	}

	cfg, v, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Str("module", "main").Msg("failed to load config")
	}
	if cfg.Mode != "debug" {
		// JSON lines outside of local development.
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	config.ApplyLogLevel(cfg.LogLevel)
	config.WatchLogLevel(v)

	o := &orch.Orchestrator{
		Speakers: app.NewSpeakerRegistry(),
		Hub:      app.NewHub(),
		Gateway:  newGateway(cfg),
		History:  app.NewTranscriptLog(cfg.HistoryLimit),
	}
	ctl := session.NewController(o, session.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteWait:    cfg.WriteWait,
		SendBuffer:   cfg.SendBuffer,
		InboundQueue: cfg.InboundQueue,
		RateLimit:    cfg.RateLimit.Frames,
		RateInterval: cfg.RateLimit.Interval,
	})

	r := router.SetupRouter(ctx, cfg, o, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("module", "main").Str("addr", addr).Msg("transcription server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Str("module", "main").Msg("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := srv.Shutdown(shutdownCtx)
		o.Hub.CloseAll()
		ctl.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("module", "main").Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Str("module", "main").Msg("server exited gracefully")
}

func newGateway(cfg *config.Config) *stt.Gateway {
	var model stt.Model = stt.Disabled{}
	if cfg.STT.Backend == "openai" {
		model = stt.NewOpenAIModel(stt.OpenAIConfig{
			APIKey:     cfg.STT.APIKey,
			BaseURL:    cfg.STT.BaseURL,
			Model:      cfg.STT.Model,
			Language:   cfg.STT.Language,
			SampleRate: cfg.STT.SampleRate,
		})
	}
	log.Info().Str("module", "main").Str("model", model.Name()).Msg("transcription backend ready")
	return stt.NewGateway(model, stt.GatewayOptions{
		MaxConcurrent: cfg.STT.MaxConcurrent,
		Timeout:       cfg.STT.Timeout,
	})
}
