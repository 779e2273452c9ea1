// Command musictools serves the music recommendation tools over MCP, on
// stdio by default or over streamable HTTP with --http.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rajit-b/agentic-app/pkg/config"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/model/providers"
	"github.com/rajit-b/agentic-app/pkg/musictools"
	"github.com/spf13/cobra"
)

var modelFactory = func(ctx context.Context, cfg model.ModelConfig) (model.Model, error) {
	return providers.Default().New(ctx, cfg)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type options struct {
	configPath string
	httpAddr   string
	noWatch    bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "musictools",
		Short:        "Serve the MusicRecommendationTools MCP server",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts, out, errOut)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default $MOODTUNES_CONFIG or ~/.moodtunes/config.yaml)")
	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :8090) instead of stdio")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the config file on change")
	return cmd
}

func serve(ctx context.Context, opts *options, out, errOut io.Writer) error {
	loader := config.NewLoader(opts.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

	tools := musictools.New(buildModel(ctx, cfg, logger), musictools.WithLogger(logger))
	if !opts.noWatch {
		go func() {
			err := config.Watch(ctx, loader, logger, func(next *config.Config) {
				tools.SetModel(buildModel(ctx, next, logger))
			})
			if err != nil {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	server := tools.MCPServer()
	if opts.httpAddr == "" {
		logger.Info("serving over stdio", "server", musictools.ServerName)
		if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
	return serveHTTP(ctx, opts.httpAddr, server, out, logger)
}

// buildModel returns nil when no credential is configured; recommend_music
// then reports the configuration error per call.
func buildModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) model.Model {
	if err := cfg.RequireAPIKey(); err != nil {
		logger.Warn("recommend_music disabled until a key is configured", "error", err)
		return nil
	}
	m, err := modelFactory(ctx, cfg.ModelConfig())
	if err != nil {
		logger.Warn("model unavailable", "provider", cfg.Provider, "error", err)
		return nil
	}
	return m
}

func serveHTTP(ctx context.Context, addr string, server *sdk.Server, out io.Writer, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: musictools.NewRouter(server), ReadHeaderTimeout: 10 * time.Second}
	fmt.Fprintf(out, "musictools listening on http://%s%s\n", listener.Addr(), musictools.MCPPath)
	logger.Info("serving over http", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("graceful shutdown timed out, closing connections", "error", err)
			return srv.Close()
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
