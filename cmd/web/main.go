package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"finitefield.org/docs-web/internal/observability"
	"finitefield.org/docs-web/internal/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:          "web",
		Short:        "Documentation site for the module family",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}
	cobra.CheckErr(bindFlags(root, v))
	root.AddCommand(newServeCmd(v), newRenderCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the documentation site (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.SetupTracing(cmd.Context(), "docs-web", cfg.OTelEndpoint)
	if err != nil {
		logger.Error("init tracing", zap.Error(err))
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	s, err := newServer(cfg, logger)
	if err != nil {
		logger.Error("init server", zap.Error(err))
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.run(ctx)
}

func (s *server) run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if s.cfg.Dev {
		// live reload sockets stay open past any write deadline
		srv.WriteTimeout = 0
		w, err := watch.New(200*time.Millisecond, s.contentChanged)
		if err != nil {
			return err
		}
		w.SetLogger(s.logger.Named("watch"))
		for _, dir := range []string{s.cfg.PublicDir, s.cfg.TemplatesDir} {
			if err := w.AddRecursive(dir); err != nil {
				s.logger.Warn("watch directory", zap.String("dir", dir), zap.Error(err))
			}
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				s.logger.Warn("watcher stopped", zap.Error(err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web listening", zap.String("addr", s.cfg.Addr), zap.Bool("dev", s.cfg.Dev))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("web shutting down")
	return srv.Shutdown(shutdownCtx)
}

// contentChanged drops cached documents and reloads open pages.
func (s *server) contentChanged(paths []string) {
	s.docs.Invalidate()
	s.logger.Info("content changed", zap.Int("files", len(paths)))
	s.hub.Reload()
}
