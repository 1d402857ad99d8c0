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
	"time"

	"github.com/brensch/soak/config"
	"github.com/brensch/soak/game"
	"github.com/brensch/soak/logging"
	"github.com/brensch/soak/protocol"
	"github.com/brensch/soak/rules"
	"github.com/brensch/soak/store"
	"github.com/brensch/soak/strategy"
)

func main() {
	tuningPath := flag.String("tuning", getEnvOrDefault("SOAK_TUNING", ""), "YAML file overriding the default tuning")
	replayPath := flag.String("replay", getEnvOrDefault("SOAK_REPLAY", ""), "Play against a recorded transcript instead of stdin")
	replayTurns := flag.Int("replay-turns", getEnvIntOrDefault("SOAK_REPLAY_TURNS", 100), "Number of turns to referee in replay mode")
	historyDir := flag.String("history-dir", getEnvOrDefault("SOAK_HISTORY_DIR", ""), "Directory for Parquet decision history (disabled when empty)")
	budget := flag.Duration("budget", getEnvDurationOrDefault("SOAK_BUDGET", 0), "Per-turn decision budget (0 uses the tuning file)")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "debug, info, warn or error")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", "text"), "text, json or pretty")

	flag.Parse()

	log, err := logging.New(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(log)

	tuning, err := config.Load(*tuningPath)
	if err != nil {
		log.Error("failed to load tuning", "error", err)
		os.Exit(1)
	}
	if *budget > 0 {
		tuning.TurnBudget = *budget
	}

	sim := rules.NewSimulator(tuning, log)
	engine, err := strategy.NewEngine(tuning, sim, log)
	if err != nil {
		log.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	var src protocol.Source
	if *replayPath != "" {
		f, err := os.Open(*replayPath)
		if err != nil {
			log.Error("failed to open transcript", "error", err)
			os.Exit(1)
		}
		replay, err := protocol.NewReplay(f, sim, *replayTurns, os.Stdout, log)
		f.Close()
		if err != nil {
			log.Error("failed to load transcript", "path", *replayPath, "error", err)
			os.Exit(1)
		}
		src = replay
	} else {
		src = protocol.NewLive(os.Stdin, os.Stdout)
	}

	var history *store.HistoryWriter
	if *historyDir != "" {
		history, err = store.NewHistoryWriter(*historyDir)
		if err != nil {
			log.Error("failed to open history", "error", err)
			os.Exit(1)
		}
	}

	log.Info("starting",
		"mode", modeName(*replayPath),
		"budget", tuning.TurnBudget,
		"posture", engine.Posture.String(),
		"history", *historyDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := run(ctx, src, engine, history, log)

	if history != nil {
		path, err := history.Finalize()
		if err != nil {
			log.Error("failed to finalize history", "error", err)
		} else if path != "" {
			log.Info("history written", "path", path, "rows", history.Rows())
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("game loop stopped", "error", runErr)
		os.Exit(1)
	}
}

// run plays turns until the source is exhausted.
func run(ctx context.Context, src protocol.Source, engine *strategy.Engine, history *store.HistoryWriter, log *slog.Logger) error {
	for {
		state, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("game over")
			return nil
		}

		var report strategy.Report
		switch {
		case err == nil:
			turnCtx, cancel := context.WithTimeout(ctx, engine.Tuning.TurnBudget)
			report = engine.Plan(turnCtx, state)
			cancel()
		case errors.Is(err, game.ErrInconsistentSnapshot) && state != nil:
			log.Warn("inconsistent snapshot, every agent waits", "turn", state.Turn, "error", err)
			report = strategy.Report{Turn: state.Turn, Fallback: true, Decisions: strategy.Fallback(state)}
		default:
			return err
		}

		if err := src.Submit(report.Commands()); err != nil {
			return fmt.Errorf("submit turn %d: %w", report.Turn, err)
		}
		if history != nil {
			if err := history.Record(engine.Posture.String(), report); err != nil {
				log.Warn("failed to record history", "turn", report.Turn, "error", err)
			}
		}

		log.Info("turn played",
			"turn", report.Turn,
			"own", report.OwnScore,
			"enemy", report.EnemyScore,
			"aggressive", report.Aggressive,
			"agents", len(report.Decisions),
			"truncated", report.Truncated,
			"elapsed", report.Elapsed,
		)
	}
}

func modeName(replayPath string) string {
	if replayPath != "" {
		return "replay"
	}
	return "live"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
