package report

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	database "dine-order/internal/order/adapter/db"
	"dine-order/internal/order/app/services"
	"dine-order/internal/xpkg/config"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

type params struct {
	configPath string
	from       string
	to         string
	days       int
	cfg        *config.Config
}

// Execute prints the revenue report for the configured store to stdout.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	params, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, myerrors.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}

	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	params.cfg = cfg

	return run(ctx, mylog, params, os.Stdout)
}

func run(ctx context.Context, mylog logger.Logger, params *params, w io.Writer) error {
	loc, err := time.LoadLocation(params.cfg.Stats.Timezone)
	if err != nil {
		return fmt.Errorf("stats timezone: %w", err)
	}

	store, err := database.Open(ctx, params.cfg, mylog)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to store", err)
		return err
	}
	defer store.Close()

	statsService := services.NewStatsService(store.Payments(), loc, mylog)

	window, err := statsService.WindowFor(params.from, params.to, params.days)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, params.cfg.Store.OpTimeout*2)
	defer cancel()

	report, err := statsService.Report(ctx, window)
	if err != nil {
		return err
	}
	mylog.Action("report_built").Debug("Report built", "settlements", report.TotalSettlements)

	return Render(w, report)
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("stats-report", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day (inclusive), YYYY-MM-DD")
	days := fs.Int("days", 0, "last N days including today; excludes --from/--to")

	if err := fs.Parse(args); err != nil {
		return nil, myerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, myerrors.ErrHelp
	}

	return &params{
		configPath: *configPath,
		from:       *from,
		to:         *to,
		days:       *days,
	}, nil
}
