// Command moodtunes asks for a mood, an activity and a location and prints a
// music recommendation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rajit-b/agentic-app/pkg/agent"
	"github.com/rajit-b/agentic-app/pkg/config"
	"github.com/rajit-b/agentic-app/pkg/decision"
	"github.com/rajit-b/agentic-app/pkg/mcp"
	"github.com/rajit-b/agentic-app/pkg/memory"
	"github.com/rajit-b/agentic-app/pkg/model"
	"github.com/rajit-b/agentic-app/pkg/model/providers"
	"github.com/rajit-b/agentic-app/pkg/perception"
	"github.com/rajit-b/agentic-app/pkg/telemetry"
)

// ioStreams wires stdin/stdout/stderr and becomes injectable in tests.
type ioStreams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

var (
	modelFactory = func(ctx context.Context, cfg model.ModelConfig) (model.Model, error) {
		return providers.Default().New(ctx, cfg)
	}
	toolDialer = mcp.Dial
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	streams := ioStreams{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	os.Exit(runCLI(ctx, config.NewLoader(""), streams))
}

// runCLI returns the process exit code.
func runCLI(ctx context.Context, loader *config.Loader, streams ioStreams) int {
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(streams.err, &slog.HandlerOptions{Level: level}))

	if cfg.Telemetry.Endpoint != "" {
		mgr, err := telemetry.NewManager(ctx, telemetry.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			telemetry.SetDefault(mgr)
			defer func() {
				_ = mgr.Shutdown(context.Background())
				telemetry.SetDefault(nil)
			}()
		}
	}

	fmt.Fprintln(streams.out, "Music recommender (interactive)")
	req, err := promptRequest(ctx, newPrompter(streams.in, streams.out))
	if err != nil {
		if errors.Is(err, errCancelled) {
			fmt.Fprintln(streams.out, "\nCancelled.")
			return 0
		}
		fmt.Fprintln(streams.err, err)
		return 1
	}
	if req.Mood == "" || req.Activity == "" {
		fmt.Fprintln(streams.err, "Mood and activity are required.")
		return 1
	}

	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}
	m, err := modelFactory(ctx, cfg.ModelConfig())
	if err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}
	maker, err := decision.NewMaker(m, decision.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}
	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}

	sessions := mcp.NewSessionCache(0, toolDialer)
	defer sessions.CloseAll()
	client, _, err := sessions.Get(ctx, cfg.ServerSpec())
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(streams.out, "\nCancelled.")
			return 0
		}
		fmt.Fprintf(streams.err, "connect to tool server: %v\n", err)
		return 1
	}

	ag, err := agent.New(agent.Config{
		Memory:      store,
		Decider:     maker,
		Tools:       client,
		Perceiver:   &perception.ModelPerceiver{Model: m, Logger: logger},
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintln(streams.err, err)
		return 1
	}

	res, err := ag.Run(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(streams.out, "\nCancelled.")
			return 0
		}
		fmt.Fprintln(streams.err, err)
		return 1
	}
	printResult(streams.out, res)

	if path := cfg.Memory.SnapshotPath; path != "" {
		if err := memory.SaveFile(path, store); err != nil {
			logger.Warn("saving memory snapshot failed", "path", path, "error", err)
		}
	}
	return 0
}

// openStore restores the snapshot when one is configured and present.
func openStore(cfg *config.Config) (*memory.Store, error) {
	path := cfg.Memory.SnapshotPath
	if path != "" {
		store, err := memory.LoadFile(path)
		switch {
		case err == nil:
			return store, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}
	return memory.NewStore(cfg.Memory.MaxRecords, cfg.Retention()), nil
}

func printResult(w io.Writer, res *agent.Result) {
	if len(res.Recommendations) == 0 {
		fmt.Fprintln(w, "\nNo recommendations received.")
		return
	}
	rec := res.Recommendations[0]
	fmt.Fprintln(w, "\nFinal Music Recommendations:")
	fmt.Fprintf(w, "\nSong: %s\nArtist: %s\nGenre: %s\nEnergy Level: %s\nReason: %s\n",
		rec.Song, rec.Artist, rec.Genre, rec.EnergyLevel, rec.Reason)
	fmt.Fprintf(w, "\nLink to YouTube: %s\n", rec.SearchURL())
	fmt.Fprintln(w, "\nEnjoy your music! 🎶")
}
