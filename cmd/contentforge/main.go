package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/verdantlabs/contentforge/internal/batch"
	"github.com/verdantlabs/contentforge/internal/config"
	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/database"
	"github.com/verdantlabs/contentforge/internal/logging"
	"github.com/verdantlabs/contentforge/internal/orchestrate"
	"github.com/verdantlabs/contentforge/internal/provider"
	"github.com/verdantlabs/contentforge/internal/router"
	"github.com/verdantlabs/contentforge/internal/server"
	"github.com/verdantlabs/contentforge/internal/validate"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "contentforge",
	Short:   "Multi-provider content generation with quality gates",
	Long:    "ContentForge routes content requests across LLM providers, validates the output, and tracks batches as jobs.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
		logging.Setup(cfg.Logging.Level, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kbCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("contentforge", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/contentforge/",
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
		fmt.Println("Edit it to configure providers, API keys, and routing strategy.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and provider status",
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

		fmt.Println("Batch jobs:")
		fmt.Printf("  Total: %d\n", stats.TotalJobs)
		fmt.Printf("  Completed: %d\n", stats.CompletedJobs)
		fmt.Printf("  Cancelled: %d\n", stats.CancelledJobs)
		fmt.Println("\nResults:")
		fmt.Printf("  Total: %d\n", stats.TotalResults)
		fmt.Printf("  Accepted: %d\n", stats.AcceptedResults)
		fmt.Println("\nKnowledge base:")
		fmt.Printf("  Records: %d\n", stats.KBRecords)
		fmt.Println("\nConfigured providers:")
		for _, p := range cfg.Providers {
			tag := ""
			if p.Premium {
				tag = " (premium)"
			}
			fmt.Printf("  %s: %s/%s, %d rpm, $%.2f/1k tokens%s\n", p.ID, p.Kind, p.Model, p.RPM, p.CostPer1K, tag)
		}
		return nil
	},
}

// --- generate command ---

var (
	genType      string
	genTopic     string
	genAudience  string
	genKeywords  []string
	genVoice     string
	genMaxLength int
	genProvider  string
	genOptimize  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one piece of content",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, _, err := buildCore(db)
		if err != nil {
			return err
		}

		voice := genVoice
		if voice == "" {
			voice = cfg.Brand.Voice
		}

		req := &content.Request{
			ContentType:       content.ContentType(genType),
			Topic:             genTopic,
			Audience:          content.Audience(genAudience),
			SEOKeywords:       genKeywords,
			BrandVoice:        voice,
			MaxLength:         genMaxLength,
			PreferredProvider: genProvider,
			Optimize:          genOptimize,
		}

		result, err := orch.Generate(context.Background(), req)
		if err != nil {
			return err
		}

		printResult(result)
		if !result.Accepted && result.Content == "" {
			return fmt.Errorf("generation failed: %s", result.FailureKind)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genType, "type", "t", "article", "Content type (article, social_caption, how_to_guide, ...)")
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "Topic to write about (required)")
	generateCmd.Flags().StringVarP(&genAudience, "audience", "a", "intermediate", "Target audience: beginner, intermediate, advanced")
	generateCmd.Flags().StringSliceVarP(&genKeywords, "keyword", "k", nil, "SEO keyword (repeatable)")
	generateCmd.Flags().StringVar(&genVoice, "voice", "", "Brand voice override")
	generateCmd.Flags().IntVar(&genMaxLength, "max-length", 0, "Word budget (0 = config default)")
	generateCmd.Flags().StringVarP(&genProvider, "provider", "p", "", "Preferred provider ID")
	generateCmd.Flags().BoolVar(&genOptimize, "optimize", false, "Optimize for search")
	generateCmd.MarkFlagRequired("topic")
}

// --- batch command ---

var (
	batchFile        string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a batch of requests from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(batchFile)
		if err != nil {
			return fmt.Errorf("reading batch file: %w", err)
		}
		var reqs []*content.Request
		if err := yaml.Unmarshal(data, &reqs); err != nil {
			return fmt.Errorf("parsing batch file: %w", err)
		}
		for _, req := range reqs {
			if req.BrandVoice == "" {
				req.BrandVoice = cfg.Brand.Voice
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, _, err := buildCore(db)
		if err != nil {
			return err
		}
		coord := batch.NewCoordinator(orch, db)

		fmt.Printf("Running %d request(s) with concurrency %d...\n", len(reqs), batchConcurrency)
		snap, err := coord.Run(context.Background(), reqs, batchConcurrency)
		if err != nil {
			return err
		}

		fmt.Printf("\nBatch %s: %s\n", snap.ID, snap.Status)
		indices := make([]int, 0, len(snap.Results))
		for idx := range snap.Results {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			res := snap.Results[idx]
			if res.Accepted {
				fmt.Printf("  [%d] accepted via %s (score %.2f, %d attempt(s))\n",
					idx, res.ProviderUsed, res.Quality.Overall, len(res.Attempts))
			} else {
				fmt.Printf("  [%d] failed: %s (%d attempt(s))\n", idx, res.FailureKind, len(res.Attempts))
			}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFile, "file", "f", "", "YAML file with a list of requests (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", batch.DefaultConcurrency, "Worker pool size")
	batchCmd.MarkFlagRequired("file")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		orch, rt, err := buildCore(db)
		if err != nil {
			return err
		}
		coord := batch.NewCoordinator(orch, db)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(orch, coord, rt, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (0 = config default)")
}

// --- kb command ---

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base used for fact validation",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all knowledge-base records",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListKBRecords()
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No knowledge-base records. Add one with: contentforge kb add")
			return nil
		}

		fmt.Println("Knowledge base:")
		fmt.Println()
		for _, rec := range records {
			fmt.Printf("  [%d] %s (%s)\n", rec.ID, rec.Name, rec.Kind)
			if len(rec.Aliases) > 0 {
				fmt.Printf("        aliases: %s\n", strings.Join(rec.Aliases, ", "))
			}
			for _, m := range rec.Misconceptions {
				fmt.Printf("        misconception: %s\n", m)
			}
		}
		return nil
	},
}

var (
	kbName           string
	kbKind           string
	kbAliases        []string
	kbFacts          []string
	kbMisconceptions []string
)

var kbAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a knowledge-base record",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.InsertKBRecord(kbName, kbKind, kbAliases, kbFacts, kbMisconceptions)
		if err != nil {
			return err
		}
		fmt.Printf("Added record [%d]: %s (%s)\n", id, kbName, kbKind)
		return nil
	},
}

var kbRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a knowledge-base record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record ID: %s", args[0])
		}

		rec, err := db.GetKBRecord(id)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("record %d not found", id)
		}

		if err := db.DeleteKBRecord(id); err != nil {
			return err
		}
		fmt.Printf("Removed record [%d]: %s\n", id, rec.Name)
		return nil
	},
}

func init() {
	kbAddCmd.Flags().StringVar(&kbName, "name", "", "Record name (required)")
	kbAddCmd.Flags().StringVar(&kbKind, "kind", "plant", "Record kind: plant, equipment, technique")
	kbAddCmd.Flags().StringSliceVar(&kbAliases, "alias", nil, "Alias (repeatable)")
	kbAddCmd.Flags().StringSliceVar(&kbFacts, "fact", nil, "Known fact (repeatable)")
	kbAddCmd.Flags().StringSliceVar(&kbMisconceptions, "misconception", nil, "Known-false claim (repeatable)")
	kbAddCmd.MarkFlagRequired("name")

	kbCmd.AddCommand(kbListCmd)
	kbCmd.AddCommand(kbAddCmd)
	kbCmd.AddCommand(kbRemoveCmd)
}

// --- wiring helpers ---

// openDB opens the SQLite database in the configured data directory.
func openDB() (*database.DB, error) {
	return database.Open(filepath.Join(cfg.GetDataDir(), "contentforge.db"))
}

// buildCore wires the router, provider adapters, validation pipeline, and
// orchestrator from config, with the database backing the knowledge base.
func buildCore(db *database.DB) (*orchestrate.Orchestrator, *router.Router, error) {
	adapters, err := provider.FromConfig(cfg.Providers)
	if err != nil {
		return nil, nil, err
	}

	rt, err := router.New(cfg.Providers, router.Strategy(cfg.Routing.Strategy), router.Options{
		FailureThreshold: cfg.Routing.FailureThreshold,
		Cooldown:         time.Duration(cfg.Routing.CooldownSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	pipeline := validate.Default(db, cfg.Brand, cfg.Validation)

	orch := orchestrate.New(rt, adapters, pipeline, cfg.Providers, orchestrate.Options{
		AttemptTimeout: time.Duration(cfg.Routing.AttemptTimeoutSeconds) * time.Second,
		QualityRetries: cfg.Routing.QualityRetries,
	})
	return orch, rt, nil
}

func printResult(result *orchestrate.Result) {
	if result.Accepted {
		fmt.Printf("Accepted via %s (score %.2f, %d attempt(s))\n\n",
			result.ProviderUsed, result.Quality.Overall, len(result.Attempts))
		fmt.Println(result.Content)
		return
	}

	fmt.Printf("Failed: %s\n", result.FailureKind)
	for _, a := range result.Attempts {
		if a.ErrKind != "" {
			fmt.Printf("  %s: %s\n", a.Provider, a.ErrKind)
		} else if a.Quality != nil {
			fmt.Printf("  %s: score %.2f\n", a.Provider, a.Quality.Overall)
		}
	}
	if result.Content != "" && result.Quality != nil {
		fmt.Printf("\nBest draft (below threshold, score %.2f):\n\n%s\n", result.Quality.Overall, result.Content)
		for _, issue := range result.Quality.Issues {
			fmt.Printf("  - %s\n", issue)
		}
	}
}
