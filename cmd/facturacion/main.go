package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/microtienda/facturacion/internal/amqpx"
	"github.com/microtienda/facturacion/internal/config"
	"github.com/microtienda/facturacion/internal/consumer"
	"github.com/microtienda/facturacion/internal/httpx"
	"github.com/microtienda/facturacion/internal/orders"
	"github.com/microtienda/facturacion/internal/postgres"
	"github.com/microtienda/facturacion/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log.Logger = log.With().Str("service", cfg.ServiceName).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	broker := amqpx.NewSupervisor(cfg.AMQPURL, cfg.AMQPRetryDelay, amqpx.Topology{
		IntakeExchange: orders.ExchangeIntake,
		IntakeQueue:    orders.QueueIntake,
		IntakeKey:      orders.KeyIntake,
		NotifyExchange: orders.ExchangeNotify,
		ReportExchange: orders.ExchangeReports,
		ReportQueue:    orders.QueueReports,
		AlertQueue:     orders.QueueAlerts,
		AlertKey:       orders.KeyAlerts,
	})
	defer broker.Close()

	repo := &orders.Repo{DB: db}

	intake := &consumer.Service{
		Store:            repo,
		Publisher:        broker,
		AlertThreshold:   cfg.AlertThreshold,
		RequeueOnDBError: cfg.RequeueOnDBError,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:     repo,
		Publisher: broker,
		Cache:     &redisx.Cache{R: rdb},
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return broker.Consume(ctx, orders.QueueIntake, intake.HandleDelivery)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("exit")
	}
}
