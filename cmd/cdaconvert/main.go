package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/cdaconvert/internal/config"
	"github.com/ehr/cdaconvert/internal/domain/consolidator"
	"github.com/ehr/cdaconvert/internal/domain/record"
	"github.com/ehr/cdaconvert/internal/export"
	"github.com/ehr/cdaconvert/internal/platform/db"
	"github.com/ehr/cdaconvert/internal/platform/hipaa"
)

const version = "1.0.0"

const (
	exitOK          = 0
	exitUnexpected  = 1
	exitInput       = 2
	exitParse       = 3
	exitExtraction  = 4
	exitOutput      = 5
	exitInterrupted = 130
)

type options struct {
	output      string
	summaryFile string
	privacy     string
	logFormat   string
	failFast    bool
	quiet       bool
	verbosity   int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(exitInterrupted)
	}()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return exitCode(err)
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "cdaconvert [directory]",
		Short: "Consolidate a directory of CDA clinical documents into one JSON health record",
		Long: `cdaconvert reads an exported directory of HL7 CDA XML documents
(DOC*.XML), extracts the structured clinical content and the narrative
of each visit, applies the selected privacy level, and writes a single
consolidated JSON health record.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return convert(cmd, dir, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.summaryFile, "summary-file", "", "file name of the patient summary document")
	cmd.Flags().StringVar(&opts.privacy, "privacy", "", "privacy level: full, redacted, or strict")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "abort on the first unreadable document")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	cmd.Flags().CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cdaconvert %s\n", version)
		},
	})

	return cmd
}

// convert runs the full pipeline: load config, consolidate the document
// directory, apply the privacy level, and write the output envelope.
// Flags that were set explicitly override the environment configuration.
func convert(cmd *cobra.Command, dir string, opts *options) error {
	started := time.Now().UTC()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return record.NewInputError("invalid configuration: %v", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("output") {
		opts.output = cfg.OutputFile
	}
	if !flags.Changed("summary-file") {
		opts.summaryFile = cfg.SummaryFile
	}
	if !flags.Changed("privacy") {
		opts.privacy = cfg.PrivacyLevel
	}
	if !flags.Changed("log-format") {
		opts.logFormat = cfg.LogFormat
	}
	if !flags.Changed("fail-fast") {
		opts.failFast = cfg.FailFast
	}

	logger := newLogger(opts)

	level, err := hipaa.ParseLevel(opts.privacy)
	if err != nil {
		logger.Error().Err(err).Msg("invalid privacy level")
		return record.NewInputError("%v", err)
	}

	cons := consolidator.New(logger, opts.summaryFile, opts.failFast)
	rec, err := cons.Consolidate(dir)
	if err != nil {
		logger.Error().Err(err).Str("directory", dir).Msg("conversion failed")
		return err
	}

	filtered := hipaa.Apply(logger, rec, level)

	writer := export.NewWriter("cdaconvert/" + version)
	env, err := writer.WriteFile(opts.output, filtered, string(level))
	if err != nil {
		logger.Error().Err(err).Str("path", opts.output).Msg("failed to write output")
		return err
	}

	logger.Info().
		Str("output", opts.output).
		Str("privacy_level", string(level)).
		Int("encounters", len(filtered.Encounters)).
		Msg("health record written")

	if cfg.AuditDatabaseURL != "" {
		recordAudit(cmd.Context(), logger, cfg, env, filtered, started)
	}
	return nil
}

// recordAudit writes one export-audit row when an audit database is
// configured. Audit failures never fail the conversion.
func recordAudit(ctx context.Context, logger zerolog.Logger, cfg *config.Config, env *export.Envelope, rec *record.HealthRecord, started time.Time) {
	pool, err := db.NewPool(ctx, cfg.AuditDatabaseURL, cfg.AuditDBMaxConns, cfg.AuditDBMinConns)
	if err != nil {
		logger.Warn().Err(err).Msg("audit database unreachable, skipping export audit")
		return
	}
	defer pool.Close()

	runID, err := uuid.Parse(env.RunID)
	if err != nil {
		runID = uuid.New()
	}
	event := &hipaa.ExportAudit{
		RunID:         runID,
		PrivacyLevel:  env.PrivacyLevel,
		DocumentCount: len(rec.Encounters),
		Outcome:       "success",
		StartedAt:     started,
		CompletedAt:   time.Now().UTC(),
	}
	if err := hipaa.NewAuditLogger(pool).RecordExport(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("failed to record export audit")
	}
}

func newLogger(opts *options) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case opts.quiet:
		level = zerolog.ErrorLevel
	case opts.verbosity == 1:
		level = zerolog.InfoLevel
	case opts.verbosity >= 2:
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if opts.logFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// exitCode maps pipeline errors onto stable process exit codes so that
// scripts wrapping the tool can distinguish failure classes.
func exitCode(err error) int {
	var (
		inputErr      *record.InputError
		parseErr      *record.ParseError
		extractionErr *record.ExtractionError
		outputErr     *record.OutputError
	)
	switch {
	case errors.As(err, &inputErr):
		return exitInput
	case errors.As(err, &parseErr):
		return exitParse
	case errors.As(err, &extractionErr):
		return exitExtraction
	case errors.As(err, &outputErr):
		return exitOutput
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitUnexpected
	}
}
