package notsub

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	brokermessage "dine-order/internal/order/adapter/broker_message"
	"dine-order/internal/order/domain/dto"
	"dine-order/internal/xpkg/config"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

type params struct {
	configPath string
	table      int
	cfg        *config.Config
}

// Execute follows the broker's order events until interrupted.
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
	if err := validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}

	mb, err := brokermessage.New(newCtx, params.cfg.RMQ, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return fmt.Errorf("%w: %v", myerrors.ErrRMQConn, err)
	}
	defer func() {
		if err := mb.Close(); err != nil {
			mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
		}
	}()
	mylog.Action("mb_connected").Info("Successful message broker connection", "table", params.table)

	err = mb.Relay(newCtx, NewNotifier(os.Stdout, params.table, mylog))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return nil
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	table := fs.Int("table", 0, "only print events of this table; 0 prints every table")

	if err := fs.Parse(args); err != nil {
		return nil, myerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, myerrors.ErrHelp
	}

	return &params{configPath: *configPath, table: *table}, nil
}

func validateParams(params *params) error {
	if params.table != 0 {
		if err := dto.ValidateTableNumber(params.table); err != nil {
			return err
		}
	}
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg
	return nil
}
