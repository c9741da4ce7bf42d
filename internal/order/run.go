package order

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"dine-order/internal/order/api/http"
	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/config"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

type params struct {
	orderParams *core.OrderParams
	configPath  string
	cfg         *config.Config
}

// Execute starts order service
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, myerrors.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}
	mylog.Action("command_parse_completed").Debug("Received params", "port", params.orderParams.Port, "config_path", params.configPath)

	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	// from here on the configured level applies
	mylog = logger.New("order-service", params.cfg.Log.Level)

	server := http.NewServer(newCtx, ctx, params.cfg, params.orderParams, mylog)

	// Run server in goroutine
	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	// Wait for signal or server crash
	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("order_service_failed").Error("Server failed unexpectedly", err)
			_ = server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return server.Stop(context.Background())
	}
}

// parseParams parse params from terminal
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	port := fs.Int("port", 3000, "Port to run the order service")

	if err := fs.Parse(args); err != nil {
		return nil, myerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, myerrors.ErrHelp
	}

	return &params{
		orderParams: &core.OrderParams{
			Port: *port,
		},
		configPath: *configPath,
	}, nil
}

// validateParams loads the config and checks the port
func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	if params.orderParams.Port <= 0 || params.orderParams.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", params.orderParams.Port)
	}
	return nil
}
