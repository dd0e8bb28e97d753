package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/config"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/database"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/llm"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/notify"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/period"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/rollup"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/scheduler"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/server"
	"github.com/SIMPLICITY-FINANCE/SIMPLICITY-FINANCE-sub003/internal/synthesis"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "finreports",
	Short:   "Finance podcast report rollups",
	Long:    "finreports synthesizes finance podcast episode summaries into daily, weekly, monthly, and quarterly reports.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(episodesCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("finreports", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/finreports/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the LLM provider and rollup schedules.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("Episodes:")
		fmt.Printf("  Total: %d\n", stats.TotalEpisodes)
		fmt.Printf("  Published: %d\n", stats.PublishedEpisodes)
		fmt.Printf("  With summaries: %d\n", stats.SummarizedEpisodes)
		fmt.Println("\nReports:")
		fmt.Printf("  Total: %d\n", stats.TotalReports)
		fmt.Printf("  Ready: %d\n", stats.ReadyReports)
		fmt.Printf("  Failed: %d\n", stats.FailedReports)

		if len(stats.ReportsByType) > 0 {
			fmt.Println("\nReports by type:")
			types := make([]string, 0, len(stats.ReportsByType))
			for t := range stats.ReportsByType {
				types = append(types, t)
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("  %s: %d\n", t, stats.ReportsByType[t])
			}
		}
		return nil
	},
}

// --- generate command ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report for one period",
}

var generateDailyCmd = &cobra.Command{
	Use:   "daily [YYYY-MM-DD]",
	Short: "Generate a daily report (defaults to yesterday)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := period.PreviousDay(time.Now())
		if len(args) == 1 {
			var err error
			p, err = period.FromKey(period.Daily, args[0])
			if err != nil {
				return err
			}
		}
		return runGenerate(p)
	},
}

var generateWeeklyCmd = &cobra.Command{
	Use:   "weekly [YYYY-Www]",
	Short: "Generate a weekly report (defaults to last week)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := period.PreviousWeek(time.Now())
		if len(args) == 1 {
			var err error
			p, err = period.ForWeekKey(args[0])
			if err != nil {
				return err
			}
		}
		return runGenerate(p)
	},
}

var generateMonthlyCmd = &cobra.Command{
	Use:   "monthly [YYYY-MM]",
	Short: "Generate a monthly report (defaults to last month)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := period.PreviousMonth(time.Now())
		if len(args) == 1 {
			var err error
			p, err = period.FromKey(period.Monthly, args[0])
			if err != nil {
				return err
			}
		}
		return runGenerate(p)
	},
}

var generateQuarterlyCmd = &cobra.Command{
	Use:   "quarterly [YYYY-Qn]",
	Short: "Generate a quarterly report (defaults to last quarter)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := period.PreviousQuarter(time.Now())
		if len(args) == 1 {
			var err error
			p, err = period.FromKey(period.Quarterly, args[0])
			if err != nil {
				return err
			}
		}
		return runGenerate(p)
	},
}

func init() {
	generateCmd.AddCommand(generateDailyCmd)
	generateCmd.AddCommand(generateWeeklyCmd)
	generateCmd.AddCommand(generateMonthlyCmd)
	generateCmd.AddCommand(generateQuarterlyCmd)
}

func runGenerate(p period.Period) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	engine := buildEngine(db)
	fmt.Printf("Generating %s report for %s...\n", p.Tier, p.DateKey)

	outcome, err := engine.Run(context.Background(), p, database.GenerationManual, "cli")
	if err != nil {
		return err
	}

	if outcome.Status == rollup.OutcomeGenerated {
		fmt.Printf("Report %d ready.\n", outcome.ReportID)
	} else {
		fmt.Printf("Skipped: %s\n", outcome.Message)
	}
	return nil
}

// --- backfill command ---

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Generate missing daily reports for all qualifying dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := buildEngine(db)
		result, err := engine.Backfill(context.Background())
		if err != nil {
			return err
		}

		fmt.Println("Backfill complete:")
		fmt.Printf("  Dates processed: %d\n", result.DatesProcessed)
		fmt.Printf("  Generated: %d\n", result.Generated)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		return nil
	},
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the cron scheduler for automatic rollups",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := buildEngine(db)
		svc := scheduler.NewService(engine, cfg.Schedule)
		if err := svc.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}

		fmt.Println("Scheduler running. Press Ctrl+C to stop.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		svc.Stop()
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		engine := buildEngine(db)

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, engine, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (defaults to config)")
}

// --- episodes command ---

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Manage episode records",
}

// episodeImport mirrors the record shape the ingestion pipeline hands over.
type episodeImport struct {
	Title        string                   `json:"title"`
	ChannelTitle string                   `json:"channelTitle"`
	PublishedAt  string                   `json:"publishedAt"`
	IsPublished  bool                     `json:"isPublished"`
	Summary      *database.EpisodeSummary `json:"summary"`
}

var episodesImportCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Import episode records from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading episodes file: %w", err)
		}

		var episodes []episodeImport
		if err := json.Unmarshal(data, &episodes); err != nil {
			return fmt.Errorf("parsing episodes file: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		imported := 0
		for _, e := range episodes {
			if e.Title == "" || e.PublishedAt == "" {
				log.Printf("skipping episode with missing title or publish date")
				continue
			}
			if _, err := time.Parse(time.RFC3339, e.PublishedAt); err != nil {
				log.Printf("skipping episode %q: bad publishedAt %q", e.Title, e.PublishedAt)
				continue
			}

			var channel *string
			if e.ChannelTitle != "" {
				channel = &e.ChannelTitle
			}
			if _, err := db.InsertEpisode(e.Title, channel, e.PublishedAt, e.IsPublished, e.Summary); err != nil {
				return fmt.Errorf("inserting episode %q: %w", e.Title, err)
			}
			imported++
		}

		fmt.Printf("Imported %d episode(s), skipped %d\n", imported, len(episodes)-imported)
		return nil
	},
}

func init() {
	episodesCmd.AddCommand(episodesImportCmd)
}

func buildEngine(db *database.DB) *rollup.Engine {
	summ := cfg.Synthesis
	provider := llm.CreateProvider(summ.Provider, summ.Model, summ.OllamaURL, summ.OpenAIModel, summ.APIKeyEnv, summ.Timeout())
	synthesizer := synthesis.NewSynthesizer(provider, summ.MaxTokens)

	prominence := synthesis.ProminenceMap{
		synthesis.TrajectoryRising:  cfg.Reports.Prominence.Rising,
		synthesis.TrajectoryStable:  cfg.Reports.Prominence.Stable,
		synthesis.TrajectoryFalling: cfg.Reports.Prominence.Falling,
	}
	return rollup.NewEngine(db, synthesizer, notify.LogNotifier{}, prominence, cfg.Reports.MinDailyEpisodes)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "finreports.db")
	return database.Open(dbPath)
}
