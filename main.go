package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessnumber/internal/config"
	"github.com/robalobadob/guessnumber/internal/db"
	"github.com/robalobadob/guessnumber/internal/feed"
	"github.com/robalobadob/guessnumber/internal/httpserver"
	"github.com/robalobadob/guessnumber/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	conn, err := db.OpenMigrated(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer conn.Close()

	mem := store.NewMemoryStore()
	srv := httpserver.New(cfg, mem, conn, feed.NewHub())
	log.Info().
		Str("port", cfg.Port).
		Str("strategy", string(cfg.DefaultStrategy)).
		Bool("reproducible", cfg.RoundSalt != "").
		Msg("starting guessnumber server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
