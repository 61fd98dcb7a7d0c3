package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"MarketBaseline/internal/baseline"
	"MarketBaseline/internal/config"
	"MarketBaseline/internal/history"
	"MarketBaseline/internal/ledger"
	"MarketBaseline/internal/notifier"
	"MarketBaseline/internal/pipeline"
	"MarketBaseline/internal/scheduler"
	"MarketBaseline/internal/validate"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "run":
		if _, err := runLabels(cfg); err != nil {
			log.Fatalf("[FATAL] labels: %v", err)
		}
		if _, err := runBaseline(cfg); err != nil {
			log.Fatalf("[FATAL] baseline: %v", err)
		}
	case "labels":
		if _, err := runLabels(cfg); err != nil {
			log.Fatalf("[FATAL] labels: %v", err)
		}
	case "baseline":
		if _, err := runBaseline(cfg); err != nil {
			log.Fatalf("[FATAL] baseline: %v", err)
		}
	case "validate":
		if err := runValidate(cfg); err != nil {
			log.Fatalf("[FATAL] validate: %v", err)
		}
	case "repair":
		if err := runRepair(cfg); err != nil {
			log.Fatalf("[FATAL] repair: %v", err)
		}
	case "serve":
		if err := serve(cfg); err != nil {
			log.Fatalf("[FATAL] serve: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [run|labels|baseline|validate|repair|serve]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
}

// openLedger selects the ledger backend: SQLite when configured, CSV
// otherwise.
func openLedger(cfg *config.Config) (ledger.Ledger, error) {
	if cfg.Labels.SQLitePath != "" {
		return ledger.NewSQLiteLedger(cfg.Labels.SQLitePath, cfg.Horizons, cfg.Thresholds)
	}
	return ledger.NewCSVLedger(cfg.Labels.CSVPath, cfg.Horizons, cfg.Thresholds)
}

func ledgerRef(cfg *config.Config) string {
	if cfg.Labels.SQLitePath != "" {
		return cfg.Labels.SQLitePath
	}
	return cfg.Labels.CSVPath
}

func runLabels(cfg *config.Config) (*pipeline.Result, error) {
	led, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	defer led.Close()

	store := history.NewStore(cfg.History.Root, cfg.History.Series)
	return pipeline.New(store, led, cfg).Run()
}

// buildSummary aggregates the current ledger. A nil summary with nil error
// means the ledger is still empty.
func buildSummary(cfg *config.Config) (*baseline.Summary, error) {
	led, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	defer led.Close()

	rows, err := led.Rows()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return baseline.Aggregate(rows, cfg.Thresholds, cfg.Horizons, ledgerRef(cfg)), nil
}

func runBaseline(cfg *config.Config) (*baseline.Summary, error) {
	summary, err := buildSummary(cfg)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		log.Println("[WARN] label ledger is empty, nothing to aggregate yet")
		return nil, nil
	}

	csvPath := filepath.Join(cfg.Baseline.OutDir, "baseline_probs_v1.csv")
	jsonPath := filepath.Join(cfg.Baseline.OutDir, "baseline_summary_v1.json")
	if err := summary.WriteCSV(csvPath); err != nil {
		return nil, err
	}
	if err := summary.WriteJSON(jsonPath); err != nil {
		return nil, err
	}
	log.Printf("[INFO] baseline written: %s, %s (from %d label rows)", csvPath, jsonPath, summary.NRowsLabels)
	return summary, nil
}

func runValidate(cfg *config.Config) error {
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	rows, err := led.Rows()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		log.Println("[WARN] label ledger is empty, nothing to validate yet")
		return nil
	}

	report := validate.CheckRows(rows, cfg.Horizons, cfg.Thresholds)
	report.Log()

	summary := baseline.Aggregate(rows, cfg.Thresholds, cfg.Horizons, ledgerRef(cfg))
	for _, w := range validate.CheckBaseline(summary) {
		log.Printf("[WARN] baseline: %s", w)
	}
	return nil
}

func runRepair(cfg *config.Config) error {
	if cfg.Labels.SQLitePath != "" {
		return fmt.Errorf("repair applies to the CSV ledger only")
	}
	fixes, err := ledger.RepairCSV(cfg.Labels.CSVPath)
	if err != nil {
		return err
	}
	log.Printf("[INFO] repaired ledger %s: %d positive drawdown values clamped to 0", cfg.Labels.CSVPath, fixes)
	return nil
}

func serve(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		log.Println("[INFO] Telegram notifications enabled")
	}
	notify := func(text string) {
		if tn == nil {
			return
		}
		if err := tn.SendWithRetry(ctx, text, 3); err != nil {
			log.Printf("[ERROR] notify: %v", err)
		}
	}

	var mu sync.Mutex
	var lastRun *pipeline.Result

	task := func() {
		res, err := runLabels(cfg)
		if err != nil {
			log.Printf("[ERROR] labels run: %v", err)
			notify(notifier.FormatRunError("labels", err))
			return
		}
		mu.Lock()
		lastRun = res
		mu.Unlock()
		if _, err := runBaseline(cfg); err != nil {
			log.Printf("[ERROR] baseline run: %v", err)
			notify(notifier.FormatRunError("baseline", err))
			return
		}
		notify(notifier.FormatRunReport(res))
	}

	sched, err := scheduler.New(cfg.Schedule.RunCron, task)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, func(command string) string {
			switch command {
			case "/run":
				go sched.RunNow()
				return "run started"
			case "/status":
				mu.Lock()
				res := lastRun
				mu.Unlock()
				if res == nil {
					return "no run completed yet"
				}
				return notifier.FormatRunReport(res)
			case "/baseline":
				summary, err := buildSummary(cfg)
				if err != nil {
					return fmt.Sprintf("baseline failed: %v", err)
				}
				if summary == nil {
					return "label ledger is empty"
				}
				return notifier.FormatBaselineReport(summary)
			case "/help":
				return "commands: /run /status /baseline /help"
			default:
				return ""
			}
		})
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing run now")
		sched.RunNow()
	}

	log.Println("[INFO] MarketBaseline is running. Press Ctrl+C to stop.")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[INFO] shutdown signal received, stopping...")
	return nil
}
