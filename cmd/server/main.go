package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/servicedeskai/helpdesk/internal/config"
	"github.com/servicedeskai/helpdesk/internal/database"
	"github.com/servicedeskai/helpdesk/internal/handler"
	"github.com/servicedeskai/helpdesk/internal/queue"
	"github.com/servicedeskai/helpdesk/internal/repository"
	"github.com/servicedeskai/helpdesk/internal/router"
	"github.com/servicedeskai/helpdesk/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load() // fails fast when JWT_SECRET or DB settings are missing

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tickets := repository.NewTicketRepo(db)

	// Reap refresh tokens that expired while the server was down. Expired
	// rows are already unusable; this only reclaims space.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := tokens.DeleteExpired(ctx); err != nil {
		log.Printf("token reaper: %v", err)
	} else if n > 0 {
		log.Printf("token reaper: removed %d expired refresh tokens", n)
	}
	cancel()

	auth := service.NewAuth(cfg, users, tokens)
	ai := service.NewAIClient(cfg.AIURL, cfg.UploadDir)

	uploads, err := handler.NewUploadHandler(cfg.UploadDir)
	if err != nil {
		log.Fatalf("uploads: %v", err)
	}

	h := router.Handlers{
		Auth:      handler.NewAuthHandler(auth),
		Tickets:   handler.NewTicketHandler(tickets, ai),
		Admin:     handler.NewAdminHandler(users),
		Dashboard: handler.NewDashboardHandler(tickets),
		Uploads:   uploads,
		AI:        handler.NewAIHandler(ai),
	}

	// Redis backs rate limiting and the dashboard cache; nil disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	// Background consumer turning ticket.created events into the service
	// desk notification log. Runs its own reconnect loop.
	go func() {
		if err := queue.StartTicketConsumer(); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, cfg, h, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
