// Command uiproof captures screenshot evidence of live web UIs.
//
// Usage:
//
//	uiproof                                 # run the built-in arcade scenario once
//	uiproof -scenario shop.yaml             # run a scenario file once
//	uiproof -config uiproof.yaml -serve     # serve the run-history API + MCP endpoint
//	uiproof -config uiproof.yaml -monitor   # re-run scenarios on an interval
//	uiproof -db uiproof.db -list 20         # print recent runs and exit
//	uiproof -config uiproof.yaml -prune     # apply retention to run history and exit
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/uiproof/capture"
	"github.com/hazyhaar/uiproof/monitor"
	"github.com/hazyhaar/uiproof/report"
	"github.com/hazyhaar/uiproof/runlog"
)

type options struct {
	configPath   string
	scenarioPath string
	dbPath       string
	serve        bool
	monitor      bool
	prune        bool
	list         int
}

func main() {
	var opt options
	flag.StringVar(&opt.configPath, "config", "", "path to uiproof.yaml config file")
	flag.StringVar(&opt.scenarioPath, "scenario", "", "scenario YAML file for a one-shot run")
	flag.StringVar(&opt.dbPath, "db", "", "run-history SQLite path (overrides config)")
	flag.BoolVar(&opt.serve, "serve", false, "serve the report API and MCP endpoint")
	flag.BoolVar(&opt.monitor, "monitor", false, "re-run scenarios on an interval")
	flag.BoolVar(&opt.prune, "prune", false, "apply retention to run history and exit")
	flag.IntVar(&opt.list, "list", 0, "print the N most recent runs and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, opt); err != nil {
		logger.Error("uiproof: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, opt options) error {
	cfg, err := resolveConfig(opt.configPath, opt.dbPath)
	if err != nil {
		return err
	}

	switch {
	case opt.list > 0:
		return runList(ctx, cfg, opt.list)
	case opt.prune:
		return runPrune(ctx, logger, cfg)
	case opt.serve || opt.monitor:
		return runService(ctx, logger, cfg, opt.serve, opt.monitor)
	}
	return runOnce(ctx, logger, cfg, opt.scenarioPath)
}

func resolveConfig(configPath, dbPath string) (*capture.Config, error) {
	cfg := defaultConfig()
	if configPath != "" {
		loaded, err := capture.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DB = dbPath
	}
	return cfg, nil
}

func defaultConfig() *capture.Config {
	return &capture.Config{
		Browser: capture.BrowserConfig{
			MemoryLimit:     1 << 30,
			RecycleInterval: 4 * time.Hour,
			Stealth:         "plain",
			XvfbDisplay:     ":99",
		},
		Report: capture.ReportConfig{Addr: ":8090"},
		Monitor: capture.MonitorConfig{
			Interval: 5 * time.Minute,
			Debounce: 30 * time.Second,
		},
	}
}

// runOnce executes a single scenario — the built-in arcade one unless a file
// is given — and prints the result to stdout. The exit code carries the
// verdict: any failed step fails the process.
func runOnce(ctx context.Context, logger *slog.Logger, cfg *capture.Config, scenarioPath string) error {
	sc := capture.Arcade()
	if scenarioPath != "" {
		loaded, err := capture.LoadScenario(scenarioPath)
		if err != nil {
			return err
		}
		sc = *loaded
	}

	db, store, rec, err := openHistory(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		defer rec.Close()
	}

	runner := capture.New(cfg, logger, observers(rec)...)
	runFn := recordedRun(store, logger, runner.RunOnce)

	res, err := runFn(ctx, sc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// runService runs the long-lived modes. With -monitor a single recycled
// browser serves all sweeps; with -serve alone each triggered run gets a
// fresh browser. Runs are serialised either way — this is a capture box,
// not a farm.
func runService(ctx context.Context, logger *slog.Logger, cfg *capture.Config, serve, monitorOn bool) error {
	if cfg.DB == "" {
		cfg.DB = "uiproof.db"
	}
	db, store, rec, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer rec.Close()

	byName, ordered, err := loadScenarios(cfg)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	var runFn capture.RunFunc

	if monitorOn {
		runner := capture.New(cfg, logger, observers(rec)...)
		runner.EnableRecycling()
		if err := runner.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if cerr := runner.Close(); cerr != nil {
				logger.Warn("uiproof: close browser", "error", cerr)
			}
		}()
		runFn = recordedRun(store, logger,
			func(ctx context.Context, sc capture.Scenario, opts ...capture.RunOption) (*capture.Result, error) {
				mu.Lock()
				defer mu.Unlock()
				return runner.Run(ctx, sc, opts...)
			})
	} else {
		runFn = recordedRun(store, logger,
			func(ctx context.Context, sc capture.Scenario, opts ...capture.RunOption) (*capture.Result, error) {
				mu.Lock()
				defer mu.Unlock()
				runner := capture.New(cfg, logger, observers(rec)...)
				return runner.RunOnce(ctx, sc, opts...)
			})
	}

	var wg sync.WaitGroup
	if monitorOn {
		m := monitor.New(ordered, runFn, monitor.Options{
			Interval: cfg.Monitor.Interval,
			Debounce: cfg.Monitor.Debounce,
			Logger:   logger,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Run(ctx)
		}()
	}

	var serveErr error
	if serve {
		srv := report.New(report.Config{
			Addr:      cfg.Report.Addr,
			AuthUser:  cfg.Report.AuthUser,
			AuthHash:  cfg.Report.AuthHash,
			Store:     store,
			Scenarios: byName,
			Run:       runFn,
			Logger:    logger,
		})
		serveErr = srv.Serve(ctx)
	} else {
		logger.Info("uiproof: monitoring", "db", cfg.DB, "scenarios", len(ordered))
		<-ctx.Done()
	}

	wg.Wait()
	return serveErr
}

func runList(ctx context.Context, cfg *capture.Config, n int) error {
	if cfg.DB == "" {
		return fmt.Errorf("list: no database configured (use -db or -config)")
	}
	db, err := runlog.Open(cfg.DB, runlog.WithSchema(runlog.Schema))
	if err != nil {
		return err
	}
	defer db.Close()

	store := runlog.NewStore(db)
	runs, err := store.ListRuns(ctx, n)
	if err != nil {
		return err
	}
	total, err := store.CountRuns(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"runs": runs, "total": total})
}

func runPrune(ctx context.Context, logger *slog.Logger, cfg *capture.Config) error {
	if cfg.DB == "" {
		return fmt.Errorf("prune: no database configured (use -db or -config)")
	}
	if cfg.Retention.OKDays <= 0 && cfg.Retention.FailedDays <= 0 {
		return fmt.Errorf("prune: retention not configured (set retention.ok_days / retention.failed_days)")
	}
	db, err := runlog.Open(cfg.DB, runlog.WithSchema(runlog.Schema))
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := runlog.Prune(ctx, db, runlog.RetentionConfig{
		OKDays:         cfg.Retention.OKDays,
		FailedDays:     cfg.Retention.FailedDays,
		RunVacuumAfter: cfg.Retention.Vacuum,
	})
	if err != nil {
		return err
	}
	logger.Info("uiproof: prune complete",
		"runs_deleted", stats.RunsDeleted, "events_deleted", stats.EventsDeleted)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// openHistory opens the run-history store, or returns all nils when no
// database is configured — captures work fine without history.
func openHistory(cfg *capture.Config) (*sql.DB, *runlog.Store, *runlog.Recorder, error) {
	if cfg.DB == "" {
		return nil, nil, nil, nil
	}
	db, err := runlog.Open(cfg.DB, runlog.WithMkdirAll(), runlog.WithSchema(runlog.Schema))
	if err != nil {
		return nil, nil, nil, err
	}
	return db, runlog.NewStore(db), runlog.NewRecorder(db), nil
}

// loadScenarios returns the runnable set: the built-in arcade scenario plus
// every file listed in the config. A file may shadow the built-in by reusing
// its name.
func loadScenarios(cfg *capture.Config) (map[string]capture.Scenario, []capture.Scenario, error) {
	byName := make(map[string]capture.Scenario)
	var ordered []capture.Scenario

	add := func(sc capture.Scenario) {
		if _, seen := byName[sc.Name]; seen {
			for i := range ordered {
				if ordered[i].Name == sc.Name {
					ordered[i] = sc
				}
			}
		} else {
			ordered = append(ordered, sc)
		}
		byName[sc.Name] = sc
	}

	add(capture.Arcade())
	for _, path := range cfg.Scenarios {
		sc, err := capture.LoadScenario(path)
		if err != nil {
			return nil, nil, err
		}
		add(*sc)
	}
	return byName, ordered, nil
}

// observers returns the step observers for a run: just the event recorder,
// when history is on.
func observers(rec *runlog.Recorder) []capture.Observer {
	if rec == nil {
		return nil
	}
	return []capture.Observer{capture.ObserverFunc(func(ev capture.StepEvent) {
		rec.RecordAsync(&runlog.Event{
			RunID:     ev.RunID,
			Seq:       ev.Seq,
			Step:      ev.Step,
			Detail:    ev.Detail,
			Error:     ev.Err,
			ElapsedMs: ev.Elapsed.Milliseconds(),
		})
	})}
}

// recordedRun wraps a scenario executor with history recording. With a nil
// store it degrades to plain execution.
func recordedRun(store *runlog.Store, logger *slog.Logger, exec func(context.Context, capture.Scenario, ...capture.RunOption) (*capture.Result, error)) capture.RunFunc {
	return func(ctx context.Context, sc capture.Scenario) (*capture.Result, error) {
		if store == nil {
			return exec(ctx, sc)
		}

		row := &runlog.Run{Scenario: sc.Name, URL: sc.URL}
		if err := store.InsertRun(ctx, row); err != nil {
			// History trouble must never block a capture.
			logger.Warn("uiproof: record run start", "error", err)
			return exec(ctx, sc)
		}

		res, runErr := exec(ctx, sc, capture.WithRunID(row.ID))

		if res != nil {
			for _, a := range res.Artifacts {
				art := &runlog.Artifact{
					RunID:  row.ID,
					Kind:   a.Kind,
					Path:   a.Path,
					Bytes:  a.Bytes,
					Width:  a.Width,
					Height: a.Height,
					Pages:  a.Pages,
				}
				if err := store.InsertArtifact(ctx, art); err != nil {
					logger.Warn("uiproof: record artifact", "path", a.Path, "error", err)
				}
			}
		}

		status := runlog.StatusOK
		if runErr != nil {
			status = runlog.StatusFailed
		}
		if err := store.FinishRun(ctx, row.ID, status, runErr); err != nil {
			logger.Warn("uiproof: record run finish", "error", err)
		}
		return res, runErr
	}
}
