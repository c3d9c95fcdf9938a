package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/assets"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/config"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/db"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/exercises"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/httpserver"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/store"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load vocabulary")
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer conn.Close()
	if err := db.Migrate(conn, assets.Migrations(), assets.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	catalogue := exercises.NewStore(conn)
	samples, err := assets.SampleJSON()
	if err != nil {
		log.Fatal().Err(err).Msg("read sample exercises")
	}
	seedCatalogue(catalogue, "embedded samples", samples)
	if cfg.ExercisesFile != "" {
		raw, err := os.ReadFile(cfg.ExercisesFile)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.ExercisesFile).Msg("read exercises file")
		} else {
			seedCatalogue(catalogue, cfg.ExercisesFile, raw)
		}
	}

	srv := httpserver.New(cfg, store.NewMemoryStore(), conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Int("vocabulary", words.Stats()).Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	<-done // pending result writes are flushed by Shutdown
}

// seedCatalogue inserts the exercises of a JSON array; existing ids are kept.
func seedCatalogue(st *exercises.Store, source string, raw []byte) {
	added, err := st.SeedFromJSON(context.Background(), raw)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("seed exercises")
		return
	}
	if added > 0 {
		log.Info().Int("added", added).Str("source", source).Msg("seeded exercises")
	}
}
