package microservices

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Temutjin2k/delivery-tracking/config"
	_ "github.com/Temutjin2k/delivery-tracking/docs/delivery"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/handler"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/server"
	repo "github.com/Temutjin2k/delivery-tracking/internal/adapter/postgres"
	broker "github.com/Temutjin2k/delivery-tracking/internal/adapter/rabbit"
	cache "github.com/Temutjin2k/delivery-tracking/internal/adapter/redis"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/internal/service/auth"
	"github.com/Temutjin2k/delivery-tracking/internal/service/delivery"
	"github.com/Temutjin2k/delivery-tracking/pkg/clock"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	"github.com/Temutjin2k/delivery-tracking/pkg/postgres"
	"github.com/Temutjin2k/delivery-tracking/pkg/rabbit"
	"github.com/Temutjin2k/delivery-tracking/pkg/redis"
	"github.com/Temutjin2k/delivery-tracking/pkg/trm"
	ws "github.com/Temutjin2k/delivery-tracking/pkg/wsHub"
)

var errRabbitDisconnected = errors.New("rabbitmq connection closed")

type DeliveryService struct {
	postgresDB *postgres.PostgreDB
	redis      *goredis.Client
	rabbit     *rabbit.RabbitMQ
	hub        *ws.ConnectionHub
	broker     *broker.TrackingBroker
	service    *delivery.Service
	httpServer *server.API

	cfg config.Config
	log logger.Logger
}

func NewDelivery(ctx context.Context, cfg config.Config, log logger.Logger) (*DeliveryService, error) {
	postgresDB, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, "Failed to setup database", err)
		return nil, err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Error(ctx, "Failed to connect to redis", err)
		postgresDB.Close()
		return nil, err
	}

	rabbitClient, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
	if err != nil {
		log.Error(ctx, "Failed to connect to rabbitMQ", err)
		postgresDB.Close()
		_ = redisClient.Close()
		return nil, err
	}

	hub := ws.NewConnHub(log)
	trackingBroker := broker.NewTrackingBroker(rabbitClient, log)

	deliveryService := delivery.NewService(
		repo.NewDeliveryRepo(postgresDB.Pool),
		repo.NewLocationHistoryRepo(postgresDB.Pool),
		repo.NewDeliveryEventRepo(postgresDB.Pool),
		cache.NewLocationCache(redisClient, cfg.Redis.LocationTTL),
		trackingBroker,
		hub,
		trm.New(postgresDB.Pool),
		log,
	)

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, clock.Real())

	httpServer, err := server.New(server.Options{
		Mode:     types.DeliveryService,
		Port:     cfg.Services.DeliveryService,
		Delivery: deliveryService,
		Auth:     tokens,
		Hub:      hub,
		Checks: map[string]handler.HealthCheck{
			"postgres": postgresDB.Pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
			"rabbitmq": func(context.Context) error {
				if rabbitClient.IsConnectionClosed() {
					return errRabbitDisconnected
				}
				return nil
			},
		},
	}, log)
	s := &DeliveryService{
		postgresDB: postgresDB,
		redis:      redisClient,
		rabbit:     rabbitClient,
		hub:        hub,
		broker:     trackingBroker,
		service:    deliveryService,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		s.close(ctx)
		return nil, err
	}

	return s, nil
}

func (s *DeliveryService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)

	// every instance consumes the fanout so its own websocket subscribers see all updates
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := s.broker.Consume(ctx, s.service.Fanout); err != nil {
			s.log.Error(ctx, "tracking consumer stopped", err)
		}
	}()

	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		<-consumerDone
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "delivery service closed")
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	s.log.Info(ctx, "delivery service started", "port", s.cfg.Services.DeliveryService)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	}
}

func (s *DeliveryService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}

	if s.rabbit != nil {
		if err := s.rabbit.Close(ctx); err != nil {
			s.log.Warn(ctx, "Failed to close rabbitMQ connection", "error", err.Error())
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.log.Warn(ctx, "Failed to close redis client", "error", err.Error())
		}
	}

	s.postgresDB.Close()
}
