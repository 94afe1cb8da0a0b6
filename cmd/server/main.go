package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"monopoly/server/internal/cache"
	"monopoly/server/internal/config"
	"monopoly/server/internal/game"
	"monopoly/server/internal/hub"
	"monopoly/server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	log := logrus.WithField("service", "monopoly")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		games   store.GameStore
		players store.PlayerStore
		fields  store.FieldStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("connect postgres")
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			log.WithError(err).Fatal("ensure schema")
		}
		games, players, fields = pg, pg.Players(), pg.Fields()
		log.Info("using postgres store")
	} else {
		mem := store.NewMemory()
		games, players, fields = mem, mem.Players(), mem.Fields()
		log.Warn("no DATABASE_URL set, using in-memory store")
	}

	deps := game.Deps{
		Games:     games,
		Players:   players,
		Fields:    fields,
		Broadcast: hub.New(log.WithField("component", "hub")),
		Log:       log.WithField("component", "engine"),
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer rdb.Close()
		deps.Chat = rdb
		deps.Actions = rdb
		log.Info("redis connected")
	}

	engine := game.New(deps)
	resumed, err := engine.ResumeActiveGames(ctx)
	if err != nil {
		log.WithError(err).Fatal("resume active games")
	}
	log.WithField("resumed", resumed).Info("engine ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}
