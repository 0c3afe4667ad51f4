package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "vila_mar/internal/adapters/http_server"
	"vila_mar/internal/adapters/ical"
	"vila_mar/internal/adapters/observability"
	redisad "vila_mar/internal/adapters/redis"
	"vila_mar/internal/app"
	"vila_mar/internal/domain"
	"vila_mar/internal/shared"
	mysqlrepo "vila_mar/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	catalog := domain.DefaultCatalog()
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	feed := ical.New(5)

	booking := app.NewBookingService(repo, cache, catalog)
	syncer := app.NewSyncService(feed, repo, cache, cfg.Jobs, cfg.Workers)
	q := app.NewQueryService(repo, cache, catalog, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{B: booking, S: syncer, Q: q}, server.Options{
		SyncSecret: cfg.SyncSecret,
		AdminUser:  cfg.AdminUser,
		AdminPass:  cfg.AdminPass,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Int("feeds", len(cfg.Jobs)).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
