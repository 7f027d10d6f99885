package app

import (
	"context"
	"fmt"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/moniker"
)

// Run binds the root instance, which pulls in the whole eager closure of the
// component topology.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		go a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
	}

	if err := a.model.BindInstance(ctx, moniker.RootMoniker()); err != nil {
		return fmt.Errorf("failed to bind root instance: %w", err)
	}
	a.logger.Info("Root instance bound; eager topology started.")

	a.logger.Debug("App.Run method finished.")
	return nil
}
