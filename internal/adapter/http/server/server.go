package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/handler"
	"github.com/Temutjin2k/delivery-tracking/internal/adapter/http/middleware"
	"github.com/Temutjin2k/delivery-tracking/internal/domain/types"
	"github.com/Temutjin2k/delivery-tracking/pkg/logger"
	wrap "github.com/Temutjin2k/delivery-tracking/pkg/logger/wrapper"
	ws "github.com/Temutjin2k/delivery-tracking/pkg/wsHub"
)

const serverIPAddress = "%s:%s"

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

type handlers struct {
	health   *handler.Health
	delivery *handler.Delivery
	tracking *handler.TrackingWS
}

// Options carries what a mode needs. Delivery, Auth and Hub are required for
// the delivery service only.
type Options struct {
	Mode     types.ServiceMode
	Port     string
	Delivery handler.DeliveryService
	Auth     middleware.AuthService
	Hub      *ws.ConnectionHub
	// Checks are reported by /health, keyed by dependency name.
	Checks map[string]handler.HealthCheck
}

func New(opts Options, logger logger.Logger) (*API, error) {
	handlers := &handlers{
		health: handler.NewHealth(opts.Mode.String(), opts.Checks, logger),
	}

	switch opts.Mode {
	case types.DeliveryService:
		if opts.Delivery == nil || opts.Auth == nil || opts.Hub == nil {
			return nil, errors.New("delivery service, auth service and websocket hub are required")
		}
		handlers.delivery = handler.NewDelivery(opts.Delivery, logger)
		handlers.tracking = handler.NewTrackingWS(opts.Delivery, opts.Hub, opts.Mode.String(), logger)
	case types.DriverAgent:
		// health and metrics only
	default:
		return nil, fmt.Errorf("invalid mode: %s", opts.Mode)
	}

	api := &API{
		mode:   opts.Mode,
		mux:    http.NewServeMux(),
		routes: handlers,
		m:      middleware.NewMiddleware(opts.Auth, opts.Mode.String(), logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", opts.Port),
		log:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return api, nil
}

// Handler returns the fully wrapped handler. Used by tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	h := a.m.Metrics(a.m.Logging(a.mux))
	if a.mode == types.DeliveryService {
		h = a.m.Auth(h)
	}
	return a.m.Recover(a.m.RequestID(h))
}
