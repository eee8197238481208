package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgomes/mdindex/internal/logging"
	"github.com/mgomes/mdindex/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document list and live change events over HTTP",
	Long: `Serve a JSON API over the document index. Change events are streamed
as server-sent events from /api/events and Prometheus metrics are exposed
on /metrics.

Examples:
  mdindex serve
  mdindex serve --addr 127.0.0.1:9000 --watch=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		startTime := time.Now()

		if err := lib.LoadCachedSnapshot(); err != nil {
			logging.Warn("%v", err)
		}

		hub := server.NewHub(64)
		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      server.New(lib, hub).Handler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
			// Request contexts end with the command so event streams
			// close on shutdown.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		report := lib.Scan(ctx, nil)
		if report.Err != nil {
			return nil
		}
		logging.Info("Indexed %d documents in %v", len(report.Snapshot), report.Duration)

		if serveWatch {
			session, err := lib.StartWatching(hub, nil)
			if err != nil {
				return err
			}
			logging.Info("Watching %d directories (session %s)", session.Watched(), session.ID())
		}

		shutdown := make(chan struct{})
		go func() {
			defer close(shutdown)
			handleShutdown(ctx, srv)
		}()

		logging.Info("Server listening on %s (startup %v)", serveAddr, time.Since(startTime).Round(time.Millisecond))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		<-shutdown
		return nil
	},
}

func handleShutdown(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	logging.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lib.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "watch the enabled sources and stream their changes")
	rootCmd.AddCommand(serveCmd)
}
