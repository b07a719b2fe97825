package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/otel"
	"docvault/internal/workflow"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the vault HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg := config.Load()
	log := newLogger(cmd.OutOrStdout(), cfg, opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing_shutdown_failed")
		}
	}()

	workflows, err := workflow.LoadFile(cfg.Vault.WorkflowFile)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer be.close()

	blobs, err := openStorage(cfg)
	if err != nil {
		return err
	}

	app, err := newApp(components{
		cfg:       cfg,
		log:       log,
		backend:   be,
		blobs:     blobs,
		workflows: workflows,
		registry:  newRegistry(),
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{
		"addr":           addr,
		"store_driver":   cfg.StoreDriver,
		"storage_driver": cfg.StorageDriver,
		"classes":        workflows.Classes(),
	}).Info("server_starting")

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server_stopping")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
