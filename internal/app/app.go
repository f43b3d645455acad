package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/delivery-tracking/config"
	"github.com/Temutjin2k/delivery-tracking/internal/app/microservices"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
)

var (
	ErrInvalidMode           = errors.New("invalid mode")
	ErrServiceNotInitialized = errors.New("service not initialized")
)

type Service interface {
	Start(ctx context.Context) error
}

type App struct {
	mode    types.ServiceMode
	service Service

	cfg config.Config
	log logger.Logger
}

// NewApplication builds the service selected by cfg.Mode.
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	app := &App{
		mode: cfg.Mode,
		cfg:  cfg,
		log:  log,
	}

	if err := app.initService(ctx, app.mode); err != nil {
		return nil, err
	}

	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.service == nil {
		return ErrServiceNotInitialized
	}

	return a.service.Start(ctx)
}

func (a *App) initService(ctx context.Context, mode types.ServiceMode) error {
	var (
		service Service
		err     error
	)
	switch mode {
	case types.DeliveryService:
		service, err = microservices.NewDelivery(ctx, a.cfg, a.log)
	case types.DriverAgent:
		service, err = microservices.NewAgent(ctx, a.cfg, a.log)
	case types.TrackingViewer:
		service, err = microservices.NewViewer(ctx, a.cfg, a.log)
	case types.SetStatus:
		service, err = microservices.NewStatus(ctx, a.cfg, a.log)
	case types.IssueToken:
		service, err = microservices.NewToken(ctx, a.cfg, a.log)
	default:
		return ErrInvalidMode
	}

	if err != nil {
		return fmt.Errorf("failed to init service: %w", err)
	}
	if service == nil {
		return fmt.Errorf("failed to initialize: %s", mode)
	}

	a.service = service

	return nil
}
