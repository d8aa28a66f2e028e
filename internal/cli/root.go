// Package cli defines the pics3d command tree: cohort statistics, exemplar
// comparison, subject differences and config file generation.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pelvicpics/internal/logging"
	"pelvicpics/pkg/config"
	"pelvicpics/pkg/pipeline"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// DefaultConfigPath is read when --config is not given
const DefaultConfigPath = "pics3d.yaml"

// RootOptions holds global CLI flags
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	LogFormat  string
	NumCores   int
	Workbook   string
	Coding     string
	SkipBad    bool
}

// CLIContext carries the loaded config and logger to subcommands
type CLIContext struct {
	Config *config.Config
	Logger *zap.Logger
}

type cliContextKey struct{}

// NewRootCommand creates the root command with every subcommand attached
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pics3d",
		Short: "Normalize pelvic landmarks into the PICS frame and compute cohort statistics",
		Long: "pics3d moves 3D Slicer landmark sets into the Pelvic Inclination Correction\n" +
			"System frame, measures row widths and paravaginal gaps, and summarizes\n" +
			"same-named landmarks across a cohort.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "config file path")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&opts.LogFormat, "log-format", "", "log format (console, json)")
	pf.IntVar(&opts.NumCores, "cores", 0, "number of subjects normalized in parallel (default from config)")
	pf.StringVarP(&opts.Workbook, "workbook", "w", "", "write an Excel workbook to this path")
	pf.StringVar(&opts.Coding, "coding", "", "axis coding (lisse, pics3d)")
	pf.BoolVar(&opts.SkipBad, "skip-invalid", false, "skip subjects that fail to load or normalize")

	cmd.AddCommand(
		NewStatsCmd(),
		NewCompareCmd(),
		NewDiffCmd(),
		NewInitConfigCmd(),
	)
	return cmd
}

// persistentPreRun loads the config, applies flag overrides and builds the logger
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	// init-config writes the file the other commands read
	if cmd.Name() == "init-config" {
		return nil
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Output.Verbose = opts.Verbose
	}
	if flags.Changed("log-format") {
		cfg.Output.LogFormat = opts.LogFormat
	}
	if flags.Changed("cores") {
		cfg.Processing.NumCores = opts.NumCores
	}
	if flags.Changed("workbook") {
		cfg.Output.Workbook = opts.Workbook
	}
	if flags.Changed("coding") {
		cfg.Frame.AxisCoding = opts.Coding
	}
	if flags.Changed("skip-invalid") {
		cfg.Processing.SkipInvalidSubjects = opts.SkipBad
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Output.Verbose, cfg.Output.LogFormat)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	ctx := context.WithValue(cmd.Context(), cliContextKey{}, &CLIContext{Config: cfg, Logger: logger})
	cmd.SetContext(ctx)
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root command
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New("CLI context not initialized")
	}
	return cliCtx, nil
}

// Execute runs the command tree
func Execute() error {
	return NewRootCommand().Execute()
}

func printBanner(w io.Writer, title string) {
	fmt.Fprintln(w, "================================")
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "================================")
}

// runPipeline normalizes and aggregates one set of inputs
func runPipeline(ctx context.Context, cliCtx *CLIContext, inputs []string) (*pipeline.Result, time.Duration, error) {
	p, err := pipeline.New(&pipeline.Params{Inputs: inputs, Config: cliCtx.Config}, cliCtx.Logger)
	if err != nil {
		return nil, 0, err
	}
	start := time.Now()
	res, err := p.Process(ctx)
	return res, time.Since(start), err
}

// printVerification lists subjects whose SCIPP angle missed the target
func printVerification(w io.Writer, res *pipeline.Result) {
	missed := 0
	for _, v := range res.Verifications {
		if !v.Defined || !v.WithinTolerance {
			missed++
			fmt.Fprintf(w, "Warning: SCIPP angle check failed for %s (residual %.6f rad)\n", v.Subject, v.Residual)
		}
	}
	if missed == 0 {
		fmt.Fprintf(w, "SCIPP angle verified for all %d subjects\n", len(res.Verifications))
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(w, "Skipped: %s\n", s)
	}
}
