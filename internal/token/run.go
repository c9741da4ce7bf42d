// Package token issues access tokens for staff devices and admin tooling.
package token

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"dine-order/internal/order/api/http/handle"
	"dine-order/internal/order/app/core"
	"dine-order/internal/xpkg/config"
	myerrors "dine-order/internal/xpkg/errors"
	"dine-order/internal/xpkg/logger"
)

type params struct {
	configPath string
	subject    string
	role       core.Role
	ttl        time.Duration
}

// Execute signs a token with the configured secret and prints it.
func Execute(_ context.Context, mylog logger.Logger, args []string) error {
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

	return issue(os.Stdout, cfg.Auth.JWTSecret, params)
}

func issue(w io.Writer, secret string, params *params) error {
	token, err := handle.GenerateToken(params.subject, params.role, secret, params.ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	subject := fs.String("subject", "", "who the token is for, recorded in order history")
	role := fs.String("role", string(core.RoleStaff), "customer | staff | admin")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")

	if err := fs.Parse(args); err != nil {
		return nil, myerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, myerrors.ErrHelp
	}

	p := &params{
		configPath: *configPath,
		subject:    *subject,
		role:       core.Role(*role),
		ttl:        *ttl,
	}
	if p.subject == "" {
		return nil, fmt.Errorf("%w: --subject is required", myerrors.ErrParseCmd)
	}
	if !p.role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", myerrors.ErrParseCmd, *role)
	}
	if p.ttl <= 0 {
		return nil, fmt.Errorf("%w: --ttl must be positive", myerrors.ErrParseCmd)
	}
	return p, nil
}
