// Package main provides the CLI entry point for sheetrow-go.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ukaji3/sheetrow-go/internal/config"
	"github.com/ukaji3/sheetrow-go/internal/logging"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/models"
	"github.com/ukaji3/sheetrow-go/pkg/sheetrow/output"
)

var (
	outputFormat string
	pretty       bool
	keyColumn    string
	logLevel     string
	logFormat    string
	dryRun       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetrow",
		Short: "Read and update spreadsheet rows by key",
		Long: `sheetrow reads the first sheet of an .xlsx or .xls workbook as records
keyed by the header row, looks rows up by a key column and updates cells in
place, adding columns when needed.`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml (env SHEETROW_OUTPUT)")
	pf.BoolVar(&pretty, "pretty", false, "Pretty-print JSON output (env SHEETROW_PRETTY)")
	pf.StringVarP(&keyColumn, "key", "k", "", "Key column header label (env SHEETROW_KEY_COLUMN)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env SHEETROW_LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text, json (env SHEETROW_LOG_FORMAT)")

	updateCmd := &cobra.Command{
		Use:   "update <file> <key-value> <column> <value>",
		Short: "Set a cell of the row with the given key and save the workbook",
		Args:  cobra.ExactArgs(4),
		RunE:  runUpdate,
	}
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Apply the update without saving")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "read <file>",
			Short: "Print every data row as a record",
			Args:  cobra.ExactArgs(1),
			RunE:  runRead,
		},
		&cobra.Command{
			Use:   "find <file> <key-value>",
			Short: "Print the record whose key column equals key-value",
			Args:  cobra.ExactArgs(2),
			RunE:  runFind,
		},
		updateCmd,
		&cobra.Command{
			Use:   "headers <file>",
			Short: "Print the header labels in column order",
			Args:  cobra.ExactArgs(1),
			RunE:  runHeaders,
		},
		&cobra.Command{
			Use:   "props <file>",
			Short: "Print the document properties",
			Args:  cobra.ExactArgs(1),
			RunE:  runProps,
		},
	)
	return rootCmd
}

// settings merges the environment configuration with explicitly set flags.
func settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("pretty") {
		cfg.Output.Pretty = pretty
	}
	if flags.Changed("key") {
		cfg.Session.KeyColumn = keyColumn
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession loads settings and opens path in a new session.
func openSession(cmd *cobra.Command, path string) (*sheetrow.Session, *config.Config, error) {
	cfg, err := settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	opts := sheetrow.DefaultOptions()
	opts.KeyColumn = cfg.Session.KeyColumn
	opts.Logger = logging.WithFields(logger, "command", cmd.Name())

	s := sheetrow.NewSession(sheetrow.FileStorage{Dir: cfg.Session.Dir}, opts)
	if err := s.Open(path); err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return s, cfg, nil
}

func emit(cmd *cobra.Command, cfg *config.Config, v any) error {
	f, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	data, err := output.Encode(f, v, cfg.Output.Pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if f == output.FormatJSON {
		_, err = fmt.Fprintln(out)
	}
	return err
}

func runRead(cmd *cobra.Command, args []string) error {
	s, cfg, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	headers, err := s.Headers()
	if err != nil {
		return err
	}
	records, err := s.ReadAll()
	if err != nil {
		return err
	}
	format, _ := s.Format()
	sheet, _ := s.SheetName()
	return emit(cmd, cfg, models.SheetData{
		BookName: filepath.Base(args[0]),
		Format:   format.String(),
		Sheet:    sheet,
		Headers:  headers,
		Records:  records,
	})
}

func runFind(cmd *cobra.Command, args []string) error {
	s, cfg, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	rec, ok, err := s.Find(args[1])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no row with %s = %q", cfg.Session.KeyColumn, args[1])
	}
	return emit(cmd, cfg, rec)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	s, cfg, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	result := models.UpdateResult{Key: args[1], Target: args[2], Value: args[3]}
	result.Updated, err = s.Update(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if result.Updated && !dryRun {
		if err := s.Save(); err != nil {
			return fmt.Errorf("failed to save %s: %w", args[0], err)
		}
		result.Saved = true
	}
	if err := emit(cmd, cfg, result); err != nil {
		return err
	}
	if !result.Updated {
		return fmt.Errorf("no row with %s = %q", cfg.Session.KeyColumn, args[1])
	}
	return nil
}

func runHeaders(cmd *cobra.Command, args []string) error {
	s, cfg, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	headers, err := s.Headers()
	if err != nil {
		return err
	}
	return emit(cmd, cfg, headers)
}

func runProps(cmd *cobra.Command, args []string) error {
	s, cfg, err := openSession(cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	props, err := s.Properties()
	if err != nil {
		return err
	}
	return emit(cmd, cfg, props)
}
