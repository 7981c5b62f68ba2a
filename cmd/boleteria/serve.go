package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/cinealfa/boleteria/internal/booking"
	"github.com/cinealfa/boleteria/internal/cache"
	"github.com/cinealfa/boleteria/internal/config"
	"github.com/cinealfa/boleteria/internal/database"
	"github.com/cinealfa/boleteria/internal/handler"
	"github.com/cinealfa/boleteria/internal/middleware"
	"github.com/cinealfa/boleteria/internal/pricing"
	"github.com/cinealfa/boleteria/internal/queue"
	"github.com/cinealfa/boleteria/internal/repository"
	"github.com/cinealfa/boleteria/internal/router"
	"github.com/cinealfa/boleteria/internal/seatmap"
	queue_publisher "github.com/cinealfa/boleteria/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the checkout HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.EnsureSchema(cmd.Context(), db, cfg.DBDriver); err != nil {
			return err
		}

		layout := seatmap.Layout{Rows: cfg.SeatRows, Cols: cfg.SeatCols, MaxPerOrder: cfg.SeatMaxPerOrder}
		if err := layout.Validate(); err != nil {
			log.Fatalf("invalid seat layout: %v", err)
		}

		catalog := pricing.DefaultCatalog()
		if cfg.CombosFile != "" {
			catalog, err = pricing.LoadCatalog(cfg.CombosFile)
			if err != nil {
				log.Fatalf("invalid combo catalog %s: %v", cfg.CombosFile, err)
			}
		}
		pricer, err := pricing.NewPricer(cfg.TicketPrice, catalog)
		if err != nil {
			log.Fatalf("invalid ticket price %q: %v", cfg.TicketPrice, err)
		}

		coord := booking.NewCoordinator(
			db,
			repository.NewHoldRepo(db),
			repository.NewReservationRepo(db),
			repository.NewTransactionRepo(db),
			layout,
			pricer,
			cfg.HoldTTL,
		)

		// Redis backs the availability cache and the rate limiter; both
		// degrade to pass-through when it is unreachable.
		rdb := config.NewRedisClient()
		coord.Cache = cache.New(rdb, 0)
		coord.Publisher = queue_publisher.Publisher{}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		coord.StartSweeper(ctx, cfg.SweepInterval)

		go func() {
			if err := queue.StartPaymentConsumer(); err != nil {
				log.Printf("payment consumer disabled: %v", err)
			}
		}()

		e := echo.New()
		e.HideBanner = true
		e.Use(echomw.Recover())
		e.Use(echomw.Logger())

		rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		router.RegisterRoutes(e)
		router.RegisterCheckout(e, handler.NewPaymentHandler(coord), rateLimit)

		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s driver=%s ttl=%s)", addr, cfg.Env, cfg.DBDriver, cfg.HoldTTL)
		return e.Start(addr)
	},
}
