package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/kernel-sim/kernel-sim/sim"
	"github.com/kernel-sim/kernel-sim/sim/workload"
)

const twoThreadWorkload = `
version: "1"
threads:
  - name: interactive
    priority: 10
    program:
      - {op: compute, arg: 50}
  - name: batch
    priority: 120
    program:
      - {op: compute, arg: 30}
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	registerKernelFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestResolveConfig_DefaultsWithoutFlags(t *testing.T) {
	configPath = ""
	cfg, err := resolveConfig(newFlagCommand(t))
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultKernelConfig(), cfg)
}

func TestResolveConfig_FlagsOverrideConfigFile(t *testing.T) {
	// GIVEN a config file setting both horizon and aging threshold
	path := writeFile(t, "kernel.yaml", "horizon: 5000\naging_threshold: 800\n")

	// WHEN only the aging threshold is also given on the command line
	cmd := newFlagCommand(t, "--config", path, "--aging-threshold", "300")
	t.Cleanup(func() { configPath = "" })
	cfg, err := resolveConfig(cmd)

	// THEN the flag wins for the threshold and the file wins for the horizon
	require.NoError(t, err)
	assert.Equal(t, int64(300), cfg.AgingThreshold)
	assert.Equal(t, int64(5000), cfg.Horizon)
	assert.Equal(t, int64(sim.TimerTicks), cfg.TimerTicks)
}

func TestResolveConfig_InvalidFlag_Errors(t *testing.T) {
	configPath = ""
	_, err := resolveConfig(newFlagCommand(t, "--timer-ticks", "0"))
	assert.Error(t, err)
}

func TestRunKernel_WritesReportMetricsAndTrace(t *testing.T) {
	// GIVEN a two-thread workload and output paths
	spec, err := workload.LoadWorkloadSpec(writeFile(t, "workload.yaml", twoThreadWorkload))
	require.NoError(t, err)
	dir := t.TempDir()
	outs := runOutputs{
		metricsPath:    filepath.Join(dir, "metrics.json"),
		tracePath:      filepath.Join(dir, "trace.json"),
		summarizeTrace: true,
		printReady:     true,
	}

	// WHEN the kernel runs it
	var buf bytes.Buffer
	k, err := runKernel(sim.DefaultKernelConfig(), spec, outs, &buf)
	require.NoError(t, err)

	// THEN the report and the trace summary are printed
	report := buf.String()
	assert.Contains(t, report, "=== Kernel Statistics ===")
	assert.Contains(t, report, "Threads finished     : 2")
	assert.Contains(t, report, "=== Trace Summary ===")
	assert.True(t, k.Halted())

	// AND the metrics file holds both threads
	data, err := os.ReadFile(outs.metricsPath)
	require.NoError(t, err)
	var metrics sim.MetricsOutput
	require.NoError(t, json.Unmarshal(data, &metrics))
	assert.Equal(t, 2, metrics.ThreadsFinished)
	assert.Equal(t, int64(80), metrics.UserTicks)

	// AND the trace file lists the batch thread dispatched before the interactive one
	data, err = os.ReadFile(outs.tracePath)
	require.NoError(t, err)
	var tr traceFile
	require.NoError(t, json.Unmarshal(data, &tr))
	require.NotEmpty(t, tr.Dispatches)
	assert.Equal(t, 2, tr.Dispatches[0].To, "batch is forked second and sits in the SJF queue")
	require.NotNil(t, tr.Summary)
	assert.Equal(t, 2, tr.Summary.TotalDestroys)
}

const starvedWorkload = `
version: "1"
threads:
  - name: hog
    priority: 120
    program:
      - {op: compute, arg: 100000}
  - name: editor
    priority: 10
    program:
      - {op: compute, arg: 20}
  - name: shell
    priority: 20
    program:
      - {op: compute, arg: 20}
`

func TestRunKernel_PrintReady_ListsThreadsWaitingAtHalt(t *testing.T) {
	// GIVEN an SJF hog starving two priority-band threads and a short horizon
	spec, err := workload.LoadWorkloadSpec(writeFile(t, "workload.yaml", starvedWorkload))
	require.NoError(t, err)
	cfg := sim.DefaultKernelConfig()
	cfg.Horizon = 500

	// WHEN the kernel runs with --print-ready
	var buf bytes.Buffer
	k, err := runKernel(cfg, spec, runOutputs{printReady: true}, &buf)
	require.NoError(t, err)

	// THEN both waiting threads are listed, highest priority first
	assert.True(t, k.Halted())
	assert.Contains(t, buf.String(), "Ready list contents:\nshell, editor, \n")
}

func TestValidateCmd_ReportsThreadCount(t *testing.T) {
	configPath = ""
	path := writeFile(t, "workload.yaml", twoThreadWorkload)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"validate", "--workload", path})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "OK: 2 threads (2 scripted, 0 classes)\n", out.String())
}
