package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/kernel-sim/kernel-sim/sim"
	"github.com/kernel-sim/kernel-sim/sim/trace"
	"github.com/kernel-sim/kernel-sim/sim/workload"
)

var (
	// CLI flags for the kernel
	seed           int64  // Seed for randomized time slices and workload generation
	horizon        int64  // Halt once the clock passes this tick
	logLevel       string // Log verbosity level
	configPath     string // Kernel config YAML overlay
	timerTicks     int64  // Default time slice in ticks
	randomSlice    bool   // Randomize timer interrupts
	agingThreshold int64  // Ticks in a ready queue before an aging boost
	agingIncrement int    // Priority added per aging boost
	traceLevel     string // Decision trace level

	// CLI flags for inputs and outputs
	workloadPath   string // Workload spec YAML
	metricsOutput  string // Path for JSON metrics
	traceOutput    string // Path for JSON decision trace
	summarizeTrace bool   // Print trace summary after the run
	printReady     bool   // Print the priority ready queue at halt
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "kernel-sim",
	Short: "Simulator for a multi-level feedback CPU scheduler",
}

// resolveConfig builds the kernel config: defaults, then the YAML overlay,
// then any flag the user set explicitly.
func resolveConfig(cmd *cobra.Command) (sim.KernelConfig, error) {
	cfg := sim.DefaultKernelConfig()
	if configPath != "" {
		loaded, err := sim.LoadKernelConfig(configPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("timer-ticks") {
		cfg.TimerTicks = timerTicks
	}
	if flags.Changed("random-slice") {
		cfg.RandomSlice = randomSlice
	}
	if flags.Changed("aging-threshold") {
		cfg.AgingThreshold = agingThreshold
	}
	if flags.Changed("aging-increment") {
		cfg.AgingIncrement = agingIncrement
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid kernel config: %w", err)
	}
	return cfg, nil
}

// runOutputs says where run results go.
type runOutputs struct {
	metricsPath    string
	tracePath      string
	summarizeTrace bool
	printReady     bool
}

// runKernel boots a kernel, installs the workload and runs it to halt.
func runKernel(cfg sim.KernelConfig, spec *workload.WorkloadSpec, outs runOutputs, w io.Writer) (*sim.Kernel, error) {
	k, err := sim.NewKernel(cfg)
	if err != nil {
		return nil, err
	}
	n, err := workload.Install(k, spec)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting kernel with %d threads, horizon=%d ticks, slice=%d ticks, aging=%d/+%d",
		n, cfg.Horizon, cfg.TimerTicks, cfg.AgingThreshold, cfg.AgingIncrement)

	stats := k.Run()
	k.Metrics.Print(w, stats)

	if outs.printReady {
		fmt.Fprint(w, k.ReadyListAtHalt())
	}
	if outs.metricsPath != "" {
		if err := k.Metrics.SaveResults(stats, outs.metricsPath); err != nil {
			return k, err
		}
	}
	if outs.tracePath != "" {
		if err := writeTrace(k.Trace, outs.tracePath); err != nil {
			return k, err
		}
	}
	if outs.summarizeTrace {
		printTraceSummary(w, trace.Summarize(k.Trace))
	}
	return k, nil
}

// traceFile is the JSON layout of --trace-output.
type traceFile struct {
	Level      trace.TraceLevel        `json:"level"`
	Readies    []trace.ReadyRecord     `json:"readies"`
	Agings     []trace.AgingRecord     `json:"agings"`
	Migrations []trace.MigrationRecord `json:"migrations"`
	Dispatches []trace.DispatchRecord  `json:"dispatches"`
	Destroys   []trace.DestroyRecord   `json:"destroys"`
	Summary    *trace.TraceSummary     `json:"summary"`
}

func writeTrace(st *trace.SimulationTrace, path string) error {
	out := traceFile{
		Level:      st.Config.Level,
		Readies:    st.Readies,
		Agings:     st.Agings,
		Migrations: st.Migrations,
		Dispatches: st.Dispatches,
		Destroys:   st.Destroys,
		Summary:    trace.Summarize(st),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace to %s: %w", path, err)
	}
	return nil
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Enqueues      : %d (Priority %d, RR %d, SJF %d)\n",
		s.TotalReadies, s.ReadiesPerQueue["Priority"], s.ReadiesPerQueue["RR"], s.ReadiesPerQueue["SJF"])
	fmt.Fprintf(w, "Aging boosts  : %d (max wait %d ticks)\n", s.TotalAgings, s.MaxAgingWait)
	fmt.Fprintf(w, "Migrations    : %d (to RR %d, to SJF %d)\n",
		s.TotalMigrations, s.MigrationsToQueue["RR"], s.MigrationsToQueue["SJF"])
	fmt.Fprintf(w, "Dispatches    : %d\n", s.TotalDispatches)
	fmt.Fprintf(w, "Destroyed     : %d\n", s.TotalDestroys)
}

// runCmd executes the kernel using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload on the simulated kernel",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if workloadPath == "" {
			logrus.Fatalf("Workload spec not provided (--workload). Exiting simulation.")
		}
		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		spec, err := workload.LoadWorkloadSpec(workloadPath)
		if err != nil {
			logrus.Fatalf("unable to read workload spec; %v", err)
		}

		startTime := time.Now()
		_, err = runKernel(cfg, spec, runOutputs{
			metricsPath:    metricsOutput,
			tracePath:      traceOutput,
			summarizeTrace: summarizeTrace,
			printReady:     printReady,
		}, os.Stdout)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// validateCmd checks a workload and kernel config without running them
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a workload spec and kernel config",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := resolveConfig(cmd); err != nil {
			return err
		}
		spec, err := workload.LoadWorkloadSpec(workloadPath)
		if err != nil {
			return err
		}
		plans, err := workload.GenerateThreads(spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d threads (%d scripted, %d classes)\n",
			len(plans), len(spec.Threads), len(spec.Classes))
		return nil
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func registerKernelFlags(cmd *cobra.Command) {
	def := sim.DefaultKernelConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "Kernel config YAML (flags override it)")
	cmd.Flags().StringVar(&workloadPath, "workload", "", "Workload spec YAML")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Seed for randomized time slices")
	cmd.Flags().Int64Var(&horizon, "horizon", def.Horizon, "Halt once the clock passes this tick")
	cmd.Flags().Int64Var(&timerTicks, "timer-ticks", def.TimerTicks, "Default time slice in ticks")
	cmd.Flags().BoolVar(&randomSlice, "random-slice", false, "Fire timer interrupts after random delays in [1, 2*slice]")
	cmd.Flags().Int64Var(&agingThreshold, "aging-threshold", def.AgingThreshold, "Ticks a thread waits before an aging boost")
	cmd.Flags().IntVar(&agingIncrement, "aging-increment", def.AgingIncrement, "Priority added per aging boost")
	cmd.Flags().StringVar(&traceLevel, "trace-level", def.TraceLevel, "Decision trace level (none, decisions)")
}

// init sets up CLI flags and subcommands
func init() {
	registerKernelFlags(runCmd)
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&metricsOutput, "metrics-output", "", "Write JSON metrics to this path")
	runCmd.Flags().StringVar(&traceOutput, "trace-output", "", "Write the JSON decision trace to this path")
	runCmd.Flags().BoolVar(&summarizeTrace, "summarize-trace", false, "Print a decision trace summary")
	runCmd.Flags().BoolVar(&printReady, "print-ready", false, "Print the priority ready queue at halt")

	registerKernelFlags(validateCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
