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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"osintgraph/internal/handler"
	"osintgraph/internal/hub"
	"osintgraph/internal/repository"
	"osintgraph/internal/service"
	"osintgraph/internal/watcher"
)

var (
	serveAddr      string
	serveWatchDir  string
	serveOrigins   []string
	serveArchiveOn bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API over a live session",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	f.StringVar(&serveWatchDir, "watch", "", "intake directory to watch for producer files (default from config)")
	f.StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (default any)")
	f.BoolVar(&serveArchiveOn, "archive", false, "enable the session archive endpoints")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := firstNonEmpty(serveAddr, a.cfg.Server.Addr)
	watchDir := firstNonEmpty(serveWatchDir, a.cfg.Intake.WatchDir)

	var archive repository.Archive
	if serveArchiveOn || a.cfg.Archive.Enabled {
		repo, err := a.openArchive()
		if err != nil {
			return err
		}
		defer repo.Close()
		archive = repo
		a.logger.Info("session archive enabled", zap.String("path", a.cfg.Archive.Path))
	}

	sseHub := hub.New(a.logger)

	// Relay session events to SSE clients
	events := make(chan service.Event, 100)
	a.session.EventBus().Subscribe(events)
	defer a.session.EventBus().Unsubscribe(events)

	srv := &http.Server{
		Addr: addr,
		Handler: handler.NewRouter(handler.RouterConfig{
			Session:        a.session,
			Archive:        archive,
			Events:         sseHub,
			AllowedOrigins: serveOrigins,
			Logger:         a.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case ev := <-events:
				sseHub.Broadcast(ev)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if watchDir != "" {
		w := watcher.New(watchDir, a.codecs, a.session.ApplyFunc, a.logger).WithExisting()
		g.Go(func() error {
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		a.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
