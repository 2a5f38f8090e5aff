package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacokyle01/live-analysis/client"
	"github.com/jacokyle01/live-analysis/config"
	"github.com/jacokyle01/live-analysis/engine"
	"github.com/jacokyle01/live-analysis/logging"
	"github.com/jacokyle01/live-analysis/models"
	"github.com/jacokyle01/live-analysis/server"
	"github.com/jacokyle01/live-analysis/service"
)

const usage = `Usage:
  live-analysis server [flags]                 - Run the evaluation server
  live-analysis analyze [flags] <fen>          - Analyse one position locally
  live-analysis watch [flags] <fen> [server_url] - Follow an evaluation on a server
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "server":
		err = runServer(ctx, os.Args[2:])
	case "analyze":
		err = runAnalyze(ctx, os.Args[2:])
	case "watch":
		err = runWatch(ctx, os.Args[2:])
	default:
		fmt.Println("Unknown command:", os.Args[1])
		fmt.Print(usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup parses the shared flags and returns the loaded config and logger.
func setup(fs *flag.FlagSet, args []string) (config.Config, zerolog.Logger, error) {
	path := fs.String("config", "", "path to a YAML config file")
	enginePath := fs.String("engine", "", "engine binary (overrides config)")
	level := fs.String("log-level", "", "log level (overrides config)")
	format := fs.String("log-format", "", "json or console (overrides config)")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	if *enginePath != "" {
		cfg.Engine.Path = *enginePath
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if *format != "" {
		cfg.Log.Format = *format
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	return cfg, log, err
}

func newSupervisor(ctx context.Context, cfg config.EngineConfig, log zerolog.Logger) (*engine.Supervisor, error) {
	launch := engine.ProcessLauncher(cfg.Process(log))
	return engine.NewSupervisor(ctx, launch, cfg.Supervisor(log))
}

func runServer(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides config)")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	sup, err := newSupervisor(ctx, cfg.Engine, log)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	svc := service.New(sup, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("engine did not shut down cleanly")
		}
	}()

	return server.NewServer(svc, log).Run(ctx, cfg.Server.Addr)
}

func runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	depth := fs.Int("depth", 0, "stop once this depth is reached (overrides config)")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("analyze needs a FEN")
	}
	if *depth > 0 {
		cfg.Analyze.TargetDepth = *depth
	}
	fen := strings.Join(fs.Args(), " ")

	sup, err := newSupervisor(ctx, cfg.Engine, log)
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer sup.Close(context.Background())

	if cfg.Analyze.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analyze.Deadline)
		defer cancel()
	}

	ev, err := analyze(ctx, sup, fen, cfg.Analyze)
	if ev != nil {
		printEvaluation(os.Stdout, ev)
	}
	return err
}

// analyze polls sup until the target depth, the game outcome, or the
// context deadline. The last evaluation seen is returned in every case.
func analyze(ctx context.Context, sup *engine.Supervisor, fen string, cfg config.AnalyzeConfig) (*models.Evaluation, error) {
	if _, err := sup.Start(ctx, fen); err != nil {
		return nil, err
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	var last *models.Evaluation
	for {
		select {
		case <-ctx.Done():
			if last != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return last, sup.Stop(context.Background())
			}
			return last, ctx.Err()
		case <-ticker.C:
		}

		ev, err := sup.Poll(ctx)
		if err != nil {
			return last, err
		}
		if ev == nil {
			continue
		}
		last = ev
		if ev.Outcome != nil {
			return ev, nil
		}
		if ev.Depth >= cfg.TargetDepth {
			return ev, sup.Stop(ctx)
		}
	}
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	depth := fs.Int("depth", 0, "stop once this depth is reached (overrides config)")
	cfg, log, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("watch needs a FEN")
	}
	if *depth > 0 {
		cfg.Analyze.TargetDepth = *depth
	}

	fen := fs.Arg(0)
	serverURL := "http://localhost" + cfg.Server.Addr
	if fs.NArg() > 1 {
		serverURL = fs.Arg(1)
	}

	c := client.NewClient(serverURL, log)
	return c.Watch(ctx, fen, cfg.Analyze.PollInterval, func(ev *models.Evaluation) bool {
		printEvaluation(os.Stdout, ev)
		return ev.Depth < cfg.Analyze.TargetDepth
	})
}

func printEvaluation(w io.Writer, ev *models.Evaluation) {
	if ev.Outcome != nil {
		fmt.Fprintf(w, "game over: %s\n", ev.Outcome)
		return
	}

	fmt.Fprintf(w, "depth %d, %d nodes\n", ev.Depth, ev.Nodes)
	for _, c := range ev.Continuations {
		fmt.Fprintf(w, "  %d. %6s  %s\n", c.Rank, c.Score, strings.Join(c.Moves, " "))
	}
}
