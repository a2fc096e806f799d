package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joshuapare/filepool/filepool"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "fpctl",
	Short: "Inspect and drive file pool heaps",
	Long: `fpctl creates, inspects and edits file pools: persistent heaps stored in
a single segmented file and addressed by RVA.

Settings can also come from a YAML config file or FPCTL_* environment
variables, e.g. FPCTL_SEGMENT_SHIFT=16.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/fpctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		Uint32("segment-shift", filepool.DefaultParams().SegmentShift, "log2 of the segment size for new pools (16-28)")
	rootCmd.PersistentFlags().
		Int("max-views", filepool.DefaultMaxInactiveViews, "Unreferenced segment views kept mapped")

	_ = viper.BindPFlag("segment-shift", rootCmd.PersistentFlags().Lookup("segment-shift"))
	_ = viper.BindPFlag("max-views", rootCmd.PersistentFlags().Lookup("max-views"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "fpctl"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("fpctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		printVerbose("Using config file: %s\n", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: config %s: %v\n", cfgFile, err)
	}
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// newLogger returns the stderr logger handed to the pool.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func poolParams() *filepool.Params {
	return &filepool.Params{
		SegmentShift:     viper.GetUint32("segment-shift"),
		MaxInactiveViews: viper.GetInt("max-views"),
		Logger:           newLogger(),
	}
}

// openPool opens an existing pool file. Unlike filepool.Open it never
// creates one.
func openPool(path string, readOnly bool) (*filepool.Pool, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	printVerbose("Opening pool: %s\n", path)
	p, err := filepool.Open(path, readOnly, poolParams())
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	return p, nil
}

// closePool closes p and reports the close error unless err is already set.
func closePool(p *filepool.Pool, err *error) {
	if cerr := p.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close pool: %w", cerr)
	}
}

// parseRVA accepts decimal, 0x hex or 0o octal.
func parseRVA(s string) (filepool.RVA, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid RVA %q: %w", s, errors.Unwrap(err))
	}
	return filepool.RVA(n), nil
}

func formatRVA(rva filepool.RVA) string {
	return fmt.Sprintf("0x%08x", uint32(rva))
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
