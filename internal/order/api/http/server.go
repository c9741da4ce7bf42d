package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dine-order/internal/order/adapter/broadcast"
	"dine-order/internal/order/api/http/handle"
	"dine-order/internal/order/app/core"
	"dine-order/internal/order/app/services"
	"dine-order/internal/xpkg/config"
	"dine-order/internal/xpkg/logger"

	brokermessage "dine-order/internal/order/adapter/broker_message"
	database "dine-order/internal/order/adapter/db"

	"golang.org/x/sync/errgroup"
)

var ErrServerClosed = errors.New("Server closed")

type Server struct {
	mux         *http.ServeMux
	cfg         *config.Config
	srv         *http.Server
	orderParams *core.OrderParams
	mylog       logger.Logger
	store       core.Store
	hub         *broadcast.Hub
	mb          *brokermessage.RabbitMQ
	ctx         context.Context
	appCtx      context.Context
	mu          sync.Mutex
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, orderParams *core.OrderParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:         ctx,
		appCtx:      appCtx,
		cfg:         cfg,
		orderParams: orderParams,
		mylog:       mylog,
		mux:         http.NewServeMux(),
	}
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeStore(); err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to store", err)
		return err
	}
	mylog.Action("db_connected").Info("Successful store connection", "driver", s.cfg.Store.Driver)

	s.hub = broadcast.NewHub(s.cfg.Broadcast.SubscriberBuffer, s.mylog)

	if s.cfg.Broadcast.Driver == config.BroadcastRabbitMQ {
		if err := s.initializeRabbitMQ(); err != nil {
			mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
			return err
		}
		mylog.Action("mb_connected").Info("Successful message broker connection")
	}

	if err := s.Configure(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.orderParams.Port),
		Handler:           s.withRequestLog(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.orderParams.Port, "broadcast", s.cfg.Broadcast.Driver)
	mylog.Info("server is running")

	return s.serve()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		s.mylog.Action("mb_closed").Info("Message broker closed")
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close store", err)
			return fmt.Errorf("store close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Store closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

// serve runs the HTTP listener and, with the rabbitmq driver, the relay that
// feeds broker events into the local hub.
func (s *Server) serve() error {
	g, gctx := errgroup.WithContext(s.ctx)

	g.Go(func() error {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.mb != nil {
		g.Go(func() error {
			return s.mb.Relay(gctx, s.hub)
		})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- g.Wait() }()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeStore() error {
	store, err := database.Open(s.appCtx, s.cfg, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = store
	return nil
}

func (s *Server) initializeRabbitMQ() error {
	mb, err := brokermessage.New(s.appCtx, s.cfg.RMQ, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	return nil
}

// broadcaster is where the engine publishes: the broker when several
// instances share events, the local hub otherwise.
func (s *Server) broadcaster() core.IBroadcaster {
	if s.mb != nil {
		return s.mb
	}
	return s.hub
}

// Configure wires services and handlers and registers routes.
func (s *Server) Configure() error {
	loc, err := time.LoadLocation(s.cfg.Stats.Timezone)
	if err != nil {
		return fmt.Errorf("stats timezone: %w", err)
	}

	catalog := services.NewCatalog(s.store, s.cfg.MenuCacheTTL(), s.mylog)
	orderService := services.NewOrderService(s.store, catalog, s.broadcaster(), s.mylog)
	statsService := services.NewStatsService(s.store.Payments(), loc, s.mylog)

	var broker handle.BrokerStatus
	if s.mb != nil {
		broker = s.mb
	}

	Routes(s.mux, Handlers{
		Auth:    handle.NewAuth(s.cfg.Auth.JWTSecret, s.cfg.Auth.AllowAnonymous, s.mylog),
		Order:   handle.NewOrderHandler(orderService, s.mylog),
		Payment: handle.NewPaymentHandler(orderService, statsService, s.mylog),
		Stats:   handle.NewStatsHandler(statsService, s.mylog),
		Catalog: handle.NewCatalogHandler(catalog, s.mylog),
		Live:    handle.NewLiveHandler(s.hub, s.mylog),
		Health:  handle.NewHealthHandler(s.store, s.hub, broker),
	})
	return nil
}
