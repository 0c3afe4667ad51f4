package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"vila_mar/internal/adapters/ical"
	"vila_mar/internal/adapters/observability"
	redisad "vila_mar/internal/adapters/redis"
	"vila_mar/internal/app"
	"vila_mar/internal/domain"
	"vila_mar/internal/shared"
	mysqlrepo "vila_mar/internal/storage/mysql"
)

func main() {
	roomFlag := flag.String("room", "", "only sync this room")
	sourceFlag := flag.String("source", "", "only sync this source (booking|airbnb)")
	flag.Parse()

	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("jobs", len(cfg.Jobs)).
		Int("workers", cfg.Workers).
		Msg("sync starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	feed := ical.New(5)
	syncer := app.NewSyncService(feed, repo, cache, cfg.Jobs, cfg.Workers)

	var filter app.SyncFilter
	if *roomFlag != "" {
		room := domain.Room(*roomFlag)
		filter.Room = &room
	}
	if *sourceFlag != "" {
		source := domain.Source(*sourceFlag)
		filter.Source = &source
	}

	summary, err := syncer.Run(ctx, filter)
	if err != nil {
		var ce *domain.ConfigurationError
		if errors.As(err, &ce) {
			log.Fatal().Str("reason", ce.Reason).Interface("available", ce.Available).Msg("nothing to sync")
		}
		log.Fatal().Err(err).Msg("sync failed")
	}

	log.Info().
		Bool("ok", summary.OK).
		Int("ran", summary.Ran).
		Int("results", len(summary.Results)).
		Int("errors", len(summary.Errors)).
		Msg("sync completed")
}
