package cli

import (
	"context"

	"github.com/smallbiznis/vendorscope/internal/clock"
	"github.com/smallbiznis/vendorscope/internal/config"
	"github.com/smallbiznis/vendorscope/internal/observability"
	"github.com/smallbiznis/vendorscope/pkg/db"
	"go.uber.org/fx"
)

// infra is the dependency graph shared by every command.
func infra() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
	)
}

// logToStderr keeps stdout free for command output.
func logToStderr() fx.Option {
	return fx.Decorate(func(cfg observability.Config) observability.Config {
		cfg.Log.Output = "stderr"
		return cfg
	})
}

// runOneShot starts a short lived application, fills targets from the
// graph, runs fn and stops the application again.
func runOneShot(ctx context.Context, targets []any, fn func(ctx context.Context) error, extra ...fx.Option) error {
	opts := []fx.Option{
		fx.NopLogger,
		infra(),
		logToStderr(),
		fx.Populate(targets...),
	}
	opts = append(opts, extra...)

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(ctx)
}
