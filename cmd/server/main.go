// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/calebtracey/blackjack/internal/auth"
	"github.com/calebtracey/blackjack/internal/cache"
	"github.com/calebtracey/blackjack/internal/config"
	"github.com/calebtracey/blackjack/internal/database"
	"github.com/calebtracey/blackjack/internal/handlers"
	"github.com/calebtracey/blackjack/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	auth.Init()

	logger := logrus.New()
	if !cfg.Production() {
		logger.SetLevel(logrus.DebugLevel)
	}

	srv := handlers.NewTableServer(logger)

	if cfg.ArchiveEnabled {
		database.ConnectDB()
		srv.Archive = true
	}
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, historian queue disabled: %v", err)
	} else {
		srv.Publish = true
	}

	// Deadline sweeper: timeouts are data in round state, the sweeper applies
	// the default action when one lapses.
	sweeper := srv.NewSweeper(quartz.NewReal(), time.Duration(cfg.SweepIntervalMS)*time.Millisecond, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("sweeper exited: %v", err)
		}
	}()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(middleware.LogMiddleware(logger))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: func() []string {
			// allow only origins specified in dotenv file if we are in production mode
			if cfg.Production() {
				return strings.Split(cfg.AllowedOrigins, ",")
			}
			return []string{"https://*", "http://*"}
		}(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Post("/table/create", srv.CreateTableHandler)
	r.Post("/table/{id}/join", srv.JoinTableHandler)
	r.Post("/table/{id}/start", srv.StartRoundHandler)
	r.Post("/table/{id}/bet", srv.BetHandler)
	r.Post("/table/{id}/action", srv.ActionHandler)
	r.Post("/table/{id}/settle", srv.SettleHandler)
	r.Get("/table/{id}", srv.GetTableHandler)
	r.Get("/table/ws/{id}", srv.TableWSHandler)

	addr := ":" + cfg.Port
	if !cfg.Production() {
		addr = "localhost:" + cfg.Port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
