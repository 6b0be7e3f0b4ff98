package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/aristath/foresight/internal/config"
	"github.com/aristath/foresight/internal/database"
	"github.com/aristath/foresight/internal/domains"
	"github.com/aristath/foresight/internal/presets"
	"github.com/aristath/foresight/internal/simulation"
	"github.com/aristath/foresight/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "foresight: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		presetName  = flag.String("preset", "", "preset scenario to run, or \"list\" to show available presets")
		domainList  = flag.String("domains", "", "comma-separated domain keys (default: all)")
		iterations  = flag.Int("iterations", cfg.DefaultIterations, "number of Monte Carlo trials")
		horizonDays = flag.Int("horizon", cfg.DefaultHorizon, "simulation horizon in days")
		seedFlag    = flag.Uint64("seed", 0, "random seed (0 = draw one and report it)")
		confidence  = flag.Float64("confidence", cfg.DefaultConfidence, "VaR/CVaR confidence level")
		workers     = flag.Int("workers", cfg.Workers, "trial worker count (0 = one per CPU)")
		presetFile  = flag.String("presets-file", cfg.PresetFile, "YAML file with extra templates and presets")
		save        = flag.Bool("save", cfg.PersistResults, "archive the result in the run database")
		keepGoing   = flag.Bool("continue-on-error", false, "record failed trials instead of aborting")
	)
	flag.Parse()

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	catalog := simulation.DefaultCatalog(log)
	library := presets.NewLibrary(catalog, log)
	if *presetFile != "" {
		if err := library.LoadFile(*presetFile); err != nil {
			return err
		}
	}

	if *presetName == "" || *presetName == "list" {
		printPresets(library)
		return nil
	}

	registry := domains.DefaultRegistry(log)
	domainKeys := registry.Keys()
	if *domainList != "" {
		domainKeys = strings.Split(*domainList, ",")
		for i := range domainKeys {
			domainKeys[i] = strings.TrimSpace(domainKeys[i])
		}
	}

	templates, correlation, err := library.Resolve(*presetName)
	if err != nil {
		return err
	}

	params := simulation.ScenarioParameters{
		Name:            *presetName,
		Domains:         domainKeys,
		Iterations:      *iterations,
		HorizonDays:     *horizonDays,
		Confidence:      *confidence,
		Templates:       templates,
		Correlation:     correlation,
		ContinueOnError: *keepGoing,
	}
	if *seedFlag != 0 {
		params.Seed = seedFlag
	}

	engine := simulation.NewEngine(registry.Snapshot(), log,
		simulation.WithWorkers(*workers))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, runErr := engine.Run(ctx, params)
	if runErr != nil && !errors.Is(runErr, simulation.ErrRunCancelled) {
		return runErr
	}

	printResult(result)

	if *save && result != nil && len(result.Domains) > 0 {
		if err := archiveResult(cfg, log, result); err != nil {
			return err
		}
	}

	return runErr
}

func printPresets(library *presets.Library) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Preset", "Shocks", "Description")

	for _, name := range library.Names() {
		p, _ := library.Get(name)
		table.Append(name, strings.Join(p.TemplateIDs, ", "), p.Description)
	}

	table.Render()
}

func printResult(result *simulation.ScenarioResult) {
	meta := result.Metadata
	fmt.Printf("\nScenario %q [%s] run %s\n", result.Parameters.Name, result.Status, meta.RunID)
	fmt.Printf("seed=%d trials=%d/%d failed=%d elapsed=%dms\n",
		meta.Seed, meta.CompletedTrials, meta.Iterations, meta.FailedTrials, meta.ElapsedMs)

	if len(result.Domains) == 0 {
		return
	}

	keys := make([]string, 0, len(result.Domains))
	for key := range result.Domains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	confidencePct := fmt.Sprintf("%.0f%%", result.Confidence*100)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Domain", "Mean", "StdDev", "P5", "P50", "P95", "VaR "+confidencePct, "CVaR "+confidencePct)

	for _, key := range keys {
		stats := result.Domains[key]
		table.Append(
			key,
			fmt.Sprintf("%+.4f", stats.Mean),
			fmt.Sprintf("%.4f", stats.StdDev),
			fmt.Sprintf("%+.4f", stats.Percentiles["p5"]),
			fmt.Sprintf("%+.4f", stats.Percentiles["p50"]),
			fmt.Sprintf("%+.4f", stats.Percentiles["p95"]),
			fmt.Sprintf("%.4f", stats.VaR),
			fmt.Sprintf("%.4f", stats.CVaR),
		)
	}

	table.Render()
}

func archiveResult(cfg *config.Config, log zerolog.Logger, result *simulation.ScenarioResult) error {
	ctx := context.Background()

	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "foresight.db"),
		Profile: database.ProfileArchive,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	// Refuse to append to a corrupted archive.
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("run archive at %s failed health check: %w", db.Path(), err)
	}

	repo, err := database.NewRunRepository(db, log)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, result); err != nil {
		return err
	}

	// One archive write per invocation; truncate the WAL on the way out.
	return db.WALCheckpoint("")
}
