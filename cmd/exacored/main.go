// Command exacored is exacore's execution-core daemon: it opens a KV store,
// builds an Executor, rehydrates native contracts, and then waits for
// SIGINT/SIGTERM. It does not receive or apply blocks itself. Grounded on the teacher's cmd/eth2030/main.go run(args)-returns-
// exit-code shape, with flag parsing moved onto urfave/cli/v2 — a dependency
// the teacher's own go.mod carries indirectly but never actually reaches for,
// preferring a hand-rolled flag.FlagSet wrapper instead.
//
// Usage:
//
//	exacored [flags]
//
// Flags:
//
//	--datadir    data directory path (default: ./exacore-data)
//	--backend    kv backend: memory, leveldb (default: leveldb)
//	--chainid    chain identifier (default: 1)
//	--verbosity  log level: debug, info, warn, error (default: info)
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/exacore/exacore/exlog"
	"github.com/exacore/exacore/executor"
	"github.com/exacore/exacore/kv"
)

var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// run is the actual entry point, returning an exit code. Accepts the full
// argv (including argv[0]) to match cli.App.Run's own signature, so it can
// be exercised in isolation by tests.
func run(args []string) int {
	app := &cli.App{
		Name:    "exacored",
		Usage:   "exacore execution-core daemon",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Value: "./exacore-data", Usage: "data directory path"},
			&cli.StringFlag{Name: "backend", Value: "leveldb", Usage: "kv backend: memory, leveldb"},
			&cli.Uint64Flag{Name: "chainid", Value: 1, Usage: "chain identifier"},
			&cli.StringFlag{Name: "verbosity", Value: "info", Usage: "log level: debug, info, warn, error"},
		},
		Action: runDaemon,
	}

	if err := app.Run(args); err != nil {
		exlog.Default().Module("exacored").Error("exiting with error", "err", err)
		return 1
	}
	return 0
}

func runDaemon(c *cli.Context) error {
	exlog.SetDefault(exlog.New(parseLevel(c.String("verbosity"))))
	log := exlog.Default().Module("exacored")

	log.Info("starting exacored",
		"version", version,
		"datadir", c.String("datadir"),
		"backend", c.String("backend"),
		"chainid", c.Uint64("chainid"),
	)

	store, err := openStore(c.String("backend"), c.String("datadir"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	exec := executor.New(store, c.Uint64("chainid"))
	if err := exec.Rehydrate(); err != nil {
		return fmt.Errorf("rehydrate contracts: %w", err)
	}
	log.Info("rehydrated native contracts")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig.String())
	return nil
}

// openStore resolves the --backend flag to a concrete kv.Store. "memory" is
// useful for local experimentation and tests; exacored defaults to leveldb
// for a durable on-disk store.
func openStore(backend, datadir string) (kv.Store, error) {
	switch backend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "leveldb":
		return kv.OpenLevelDB(datadir)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
