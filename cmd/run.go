package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"orchestrator/internal/command"
	"orchestrator/internal/process"
)

// timeoutKey is the configuration key holding the default process timeout.
const timeoutKey = "orchestrator.process.timeout"

var (
	runDir      string
	runEnv      []string
	runUnsetEnv []string
	runCleanEnv bool
	runTimeout  time.Duration
	runPrefix   string
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <executable> [args...]",
	Short: "Run a command with a timeout and stream its output",
	Long: `Runs an executable directly, without a shell, and streams its stdout and
stderr line by line. Every argument reaches the child unchanged.

orchestrator exits with the child's exit code. A child killed after --timeout
exits with 124, and an executable that cannot be started with 127.

When --timeout is not given the orchestrator.process.timeout configuration key
is used; without it there is no limit.`,
	Example: `  orchestrator run --timeout 30s -- ./bin/start.sh --port 9000
  orchestrator run --clean-env --env PATH=/usr/bin -- env`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	timeout, err := effectiveTimeout(cmd)
	if err != nil {
		return err
	}

	c, err := buildCommand(args)
	if err != nil {
		return err
	}

	out := &process.WriterConsumer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Prefix: runPrefix}
	code, err := process.NewExecutor().ExecuteWithConsumer(c, out, timeout)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// buildCommand assembles the command from args and the run flags.
func buildCommand(args []string) (*command.Command, error) {
	set, err := parseKeyValues("env", runEnv)
	if err != nil {
		return nil, err
	}

	c := command.New(args[0]).AddArguments(args[1:]).SetDirectory(runDir)
	if runCleanEnv {
		c.ReplaceEnv(set)
	} else {
		for k, v := range set {
			c.SetEnv(k, v)
		}
	}
	for _, k := range runUnsetEnv {
		c.UnsetEnv(k)
	}
	return c, nil
}

func effectiveTimeout(cmd *cobra.Command) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return runTimeout, nil
	}
	cfg, err := resolveConfiguration(cmd)
	if err != nil {
		return 0, err
	}
	return cfg.Duration(timeoutKey, 0)
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", "", "Working directory of the child")
	runCmd.Flags().StringArrayVar(&runEnv, "env", nil, "Set an environment variable as KEY=VALUE (repeatable)")
	runCmd.Flags().StringArrayVar(&runUnsetEnv, "unset-env", nil, "Remove an inherited environment variable (repeatable)")
	runCmd.Flags().BoolVar(&runCleanEnv, "clean-env", false, "Start from an empty environment; only --env values are passed")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Kill the child after this duration (e.g. 30s); 0 means no limit")
	runCmd.Flags().StringVar(&runPrefix, "prefix", "", "Prefix for every output line")
	runCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(runCmd)
}
