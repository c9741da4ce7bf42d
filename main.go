package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"dine-order/internal/notsub"
	"dine-order/internal/order"
	"dine-order/internal/report"
	"dine-order/internal/token"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

type mode struct {
	name    string
	alias   string
	execute func(ctx context.Context, mylog logger.Logger, args []string) error
}

var modes = []mode{
	{name: "order-service", alias: "os", execute: order.Execute},
	{name: "stats-report", alias: "sr", execute: report.Execute},
	{name: "issue-token", alias: "it", execute: token.Execute},
	{name: "notification-subscriber", alias: "ns", execute: notsub.Execute},
}

func main() {
	mylogger := logger.New("dine-order", os.Getenv("LOG_LEVEL"))

	// Global flags for selecting the service mode
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	modeName := fs.String("mode", "", "mode to run: order-service | stats-report | issue-token | notification-subscriber")

	// Only `--mode` is parsed here, every other arg goes to the mode
	modeArgs, remainingArgs := splitModeArgs(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("restaurant_system_failed").Error("Failed to parse flags", err)
		help(fs)
		os.Exit(2)
	}

	if *modeName == "" {
		mylogger.Action("restaurant_system_failed").Error("Failed to start restaurant system", myerrors.ErrModeFlag)
		help(fs)
		os.Exit(2)
	}

	for _, m := range modes {
		if *modeName != m.name && *modeName != m.alias {
			continue
		}

		l := mylogger.With("mode", m.name)
		action := strings.ReplaceAll(m.name, "-", "_")

		l.Action(action + "_started").Info("Successfully started")
		if err := m.execute(context.Background(), l, remainingArgs); err != nil {
			if errors.Is(err, myerrors.ErrHelp) {
				return
			}
			l.Action(action+"_failed").Error("Error in "+m.name, err)
			log.Fatalf("failed to execute %s: %s", m.name, err)
		}
		l.Action(action + "_completed").Info("Successfully completed")
		return
	}

	mylogger.Action("restaurant_system_failed").Error("Failed to start restaurant system", myerrors.ErrUnknownService)
	help(fs)
	os.Exit(2)
}

// splitModeArgs separates the `--mode` flag, in any of its spellings and
// positions, from the args meant for the mode itself.
func splitModeArgs(args []string) (modeArgs, rest []string) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--mode" || arg == "-mode":
			modeArgs = append(modeArgs, arg)
			if i+1 < len(args) {
				modeArgs = append(modeArgs, args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "--mode=") || strings.HasPrefix(arg, "-mode="):
			modeArgs = append(modeArgs, arg)
		default:
			rest = append(rest, arg)
		}
	}
	return modeArgs, rest
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  ./dine-order --mode=order-service --port=3000 --config-path=config.yaml")
	fmt.Println("  ./dine-order --mode=stats-report --days=7")
	fmt.Println("  ./dine-order --mode=issue-token --subject=waiter-1 --role=staff")
	fmt.Println("  ./dine-order --mode=notification-subscriber --table=5")
}
