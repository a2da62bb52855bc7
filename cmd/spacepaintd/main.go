// Command spacepaintd runs the spacepaint orchestrator: it loads (or
// seeds) the map state, initializes the GPU pipeline, and serves
// WebSocket connections until the process is asked to stop.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/5t0n3/spacepaint/internal/gpu"
	"github.com/5t0n3/spacepaint/internal/mapstate"
	"github.com/5t0n3/spacepaint/internal/orchestrator"
)

const checkpointPath = "state.png"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	m, err := loadOrSeedMap(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load map state")
	}

	pipeline, err := gpu.Init(gpu.Config{
		Width:  mapstate.Width,
		Height: mapstate.Height,
		Log:    logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize gpu pipeline")
	}
	defer pipeline.Release()

	orch := orchestrator.New(m, pipeline, logger,
		orchestrator.WithCheckpointPath(checkpointPath),
	)

	addr := orchestrator.Addr()
	server := &http.Server{Addr: addr, Handler: orch.ServeMux()}

	go func() {
		logger.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	go orch.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	orch.Quit()
	server.Close()
}

func loadOrSeedMap(logger zerolog.Logger) (*mapstate.Map, error) {
	if _, err := os.Stat(checkpointPath); err == nil {
		logger.Info().Str("path", checkpointPath).Msg("resuming from checkpoint")
		return mapstate.LoadFromPNG(checkpointPath)
	}
	logger.Info().Msg("no checkpoint found, starting from a blank map")
	return mapstate.New(), nil
}
