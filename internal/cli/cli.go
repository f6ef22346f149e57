// Package cli wires the command surface: parse, load, export, watch,
// and runs.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pairing_parser/internal/builder"
	"pairing_parser/internal/config"
	"pairing_parser/internal/feed"
	"pairing_parser/internal/lineio"
	"pairing_parser/internal/roster"
	"pairing_parser/internal/storage"
)

var (
	configPath string
	verbose    bool
)

// Execute runs the CLI application.
func Execute() {
	// Local .env for credentials during development; absence is fine.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "pairing_parser",
		Short: "Parse flight crew pairing rosters into structured JSON",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	var (
		output   string
		strict   bool
		failFast bool
	)
	cmd := &cobra.Command{
		Use:   "parse <roster-file-or-directory>",
		Short: "Parse a roster file (or every roster file in a directory) to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if strict {
				cfg.Parse.StrictValidation = true
			}
			if failFast {
				cfg.Parse.SkipOnError = false
			}
			return runParse(args[0], output, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (file for single input, directory for batch)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a pairing violates structural checks")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop on the first unparseable line")
	return cmd
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <roster-file>",
		Short: "Parse a roster file and load it into PostgreSQL and ClickHouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runLoad(args[0], cfg)
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a parsed roster to an external store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "mongo <roster-file-or-parsed-json>",
		Short: "Export to MongoDB (parses .dat/.txt input, reads .json as-is)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runExportMongo(args[0], cfg)
		},
	})
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Subscribe to the roster feed and publish parsed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runWatch(cfg)
		},
	}
}

func runsCmd() *cobra.Command {
	var (
		limit   int
		pairing string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived parse runs, or look up a pairing across runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if pairing != "" {
				return runFindPairing(cfg, pairing, limit)
			}
			return runRuns(cfg, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show")
	cmd.Flags().StringVarP(&pairing, "pairing", "p", "", "Print archived copies of this pairing ID as JSON")
	return cmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

func builderOptions(cfg *config.Config) builder.Options {
	return builder.Options{
		SkipOnError:        cfg.Parse.SkipOnError,
		StrictValidation:   cfg.Parse.StrictValidation,
		ReportTimePattern:  cfg.Parse.ReportTimePattern,
		ReleaseTimePattern: cfg.Parse.ReleaseTimePattern,
	}
}

// parseFile parses one roster file into a finished document.
func parseFile(path string, cfg *config.Config) (*roster.Document, roster.Stats, error) {
	start := time.Now()

	if _, err := lineio.Stat(path); err != nil {
		return nil, roster.Stats{}, err
	}

	b, err := builder.New(builderOptions(cfg))
	if err != nil {
		return nil, roster.Stats{}, err
	}

	count, err := lineio.EachLine(path, func(n int, line string) error {
		return b.Consume(line, n)
	})
	if err != nil {
		return nil, b.Stats(), fmt.Errorf("parse %s: %w", path, err)
	}

	doc, err := b.Finalize()
	doc.Metadata.SourceFile = filepath.Base(path)
	doc.Metadata.LineCount = count
	doc.Metadata.ProcessingTimeSeconds = time.Since(start).Seconds()
	if err != nil {
		return doc, b.Stats(), fmt.Errorf("validate %s: %w", path, err)
	}
	return doc, b.Stats(), nil
}

// runParse handles the `parse` command, in single-file or directory
// batch mode.
func runParse(input, output string, cfg *config.Config) error {
	fi, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	if !fi.IsDir() {
		if output == "" {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + ".json"
		}
		return parseAndWrite(input, output, cfg)
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	outDir := output
	if outDir == "" {
		outDir = input
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	parsed, failed := 0, 0
	for _, e := range entries {
		if e.IsDir() || !lineio.IsRosterFile(e.Name()) {
			continue
		}
		in := filepath.Join(input, e.Name())
		out := filepath.Join(outDir, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))+".json")
		if err := parseAndWrite(in, out, cfg); err != nil {
			log.Error().Err(err).Str("file", in).Msg("Parse failed")
			failed++
			continue
		}
		parsed++
	}

	log.Info().Int("parsed", parsed).Int("failed", failed).Msg("Batch complete")
	if parsed == 0 && failed == 0 {
		return fmt.Errorf("no roster files found in %s", input)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, parsed+failed)
	}
	return nil
}

func parseAndWrite(input, output string, cfg *config.Config) error {
	doc, stats, err := parseFile(input, cfg)
	if err != nil {
		return err
	}

	if err := lineio.WriteJSON(output, doc, cfg.Output.Indent, cfg.Output.Backup); err != nil {
		return err
	}

	log.Info().
		Str("input", input).
		Str("output", output).
		Int("bid_periods", doc.Metadata.TotalBidPeriods).
		Int("pairings", doc.Metadata.TotalPairings).
		Int("errors", stats.Errors).
		Int("ambiguous_legs", stats.AmbiguousLegs).
		Msg("Roster parsed")
	return nil
}

// runLoad handles the `load` command.
func runLoad(input string, cfg *config.Config) error {
	ctx, cancel := setupContext()
	defer cancel()

	doc, stats, err := parseFile(input, cfg)
	if err != nil {
		return err
	}

	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.CreateSchemas(ctx); err != nil {
		return err
	}

	counts, err := db.PG.ImportDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("postgres import: %w", err)
	}
	log.Info().
		Int("bid_periods", counts.BidPeriods).
		Int("pairings", counts.Pairings).
		Int("duty_periods", counts.DutyPeriods).
		Int("legs", counts.Legs).
		Msg("Loaded into PostgreSQL")

	legRows, err := db.CH.InsertLegs(ctx, doc)
	if err != nil {
		return fmt.Errorf("clickhouse insert: %w", err)
	}
	log.Info().Int("legs", legRows).Msg("Loaded into ClickHouse")

	archive, err := storage.OpenArchive(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	runID, err := archive.RecordRun(doc, stats)
	if err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	log.Info().Int64("run_id", runID).Msg("Run archived")
	return nil
}

// runExportMongo handles `export mongo`. A .json input is treated as an
// already-parsed document; anything else is parsed first.
func runExportMongo(input string, cfg *config.Config) error {
	ctx, cancel := setupContext()
	defer cancel()

	var doc *roster.Document
	if strings.EqualFold(filepath.Ext(input), ".json") {
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("read parsed document: %w", err)
		}
		doc = &roster.Document{}
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("decode parsed document: %w", err)
		}
	} else {
		var err error
		doc, _, err = parseFile(input, cfg)
		if err != nil {
			return err
		}
	}

	exporter, err := storage.OpenMongo(ctx, cfg.Storage.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = exporter.Close(ctx) }()

	if err := exporter.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	counts, err := exporter.ExportDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("mongo export: %w", err)
	}

	log.Info().
		Int("bid_periods", counts.BidPeriods).
		Int("pairings", counts.Pairings).
		Msg("Exported to MongoDB")
	return nil
}

// runWatch handles the `watch` command.
func runWatch(cfg *config.Config) error {
	ctx, cancel := setupContext()
	defer cancel()

	w, err := feed.Connect(feed.Options{
		URL:        cfg.Feed.URL,
		Subject:    cfg.Feed.Subject,
		OutSubject: cfg.Feed.OutSubject,
		QueueGroup: cfg.Feed.QueueGroup,
		Builder:    builderOptions(cfg),
	})
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx)
}

// runFindPairing handles `runs --pairing`.
func runFindPairing(cfg *config.Config, pairingID string, limit int) error {
	archive, err := storage.OpenArchive(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	pairings, err := archive.FindPairings(pairingID, limit)
	if err != nil {
		return err
	}
	if len(pairings) == 0 {
		return fmt.Errorf("pairing %s not found in archive", pairingID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pairings)
}

// runRuns handles the `runs` command.
func runRuns(cfg *config.Config, limit int) error {
	archive, err := storage.OpenArchive(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	runs, err := archive.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	fmt.Printf("%-5s %-24s %-20s %8s %8s %7s %7s\n",
		"ID", "SOURCE", "PARSED AT", "LINES", "PAIRINGS", "ERRORS", "AMBIG")
	for _, r := range runs {
		fmt.Printf("%-5d %-24s %-20s %8d %8d %7d %7d\n",
			r.ID, r.SourceFile, r.ParsedAt.Format("2006-01-02 15:04:05"),
			r.LineCount, r.Pairings, r.Errors, r.AmbiguousLegs)
	}
	return nil
}
