// Command spellauth runs operator tasks against a spellauth deployment:
// schema migration, role reconciliation, an admin HTTP endpoint and token
// inspection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/spellauth/internal/settings"
	"github.com/MrEthical07/spellauth/token"
)

var errUsage = errors.New("usage")

const usage = `usage: spellauth <command> [flags]

commands:
  migrate               apply database migrations
  reconcile             create or correct the canonical roles
  serve                 run the admin HTTP endpoint
  token issue|verify    issue or check a purpose-bound token
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		slog.Default().Error("spellauth failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := settings.Load(".env")
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	logger := newLogger(cfg, stderr)

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, cfg, logger)
	case "reconcile":
		return runReconcile(ctx, cfg, logger, stdout)
	case "serve":
		return runServe(ctx, cfg, logger)
	case "token":
		return runToken(ctx, cfg, logger, args[1:], stdout)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return errUsage
}

func newLogger(cfg *settings.Settings, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runReconcile(ctx context.Context, cfg *settings.Settings, logger *slog.Logger, stdout io.Writer) error {
	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.engine.ReconcileRoles(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created=%v updated=%v unchanged=%v\n", report.Created, report.Updated, report.Unchanged)
	return nil
}

func runToken(ctx context.Context, cfg *settings.Settings, logger *slog.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet("token "+args[0], flag.ContinueOnError)
	var (
		purpose = fs.String("purpose", "confirm", "token purpose: confirm, reset or change_email")
		userID  = fs.String("user", "", "user id the token is bound to")
		ttl     = fs.Duration("ttl", cfg.TokenTTL, "token lifetime (issue only)")
		tok     = fs.String("token", "", "token to verify (verify only)")
	)
	if err := fs.Parse(args[1:]); err != nil {
		return errUsage
	}
	if *userID == "" {
		return fmt.Errorf("token: -user is required")
	}

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	u, err := rt.engine.LoadUser(ctx, *userID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("token: user %s not found", *userID)
	}

	p, ok := token.ParsePurpose(*purpose)
	if !ok {
		return fmt.Errorf("token: unknown purpose %q", *purpose)
	}

	switch args[0] {
	case "issue":
		out, ok := rt.engine.GenerateToken(u, p, *ttl)
		if !ok {
			return errors.New("token: issue failed (is SECRET_KEY set?)")
		}
		fmt.Fprintln(stdout, out)
		return nil
	case "verify":
		if rt.engine.VerifyToken(ctx, u, p, *tok) {
			fmt.Fprintln(stdout, "valid")
			return nil
		}
		fmt.Fprintln(stdout, "invalid")
		return errors.New("token: invalid")
	}
	return errUsage
}
