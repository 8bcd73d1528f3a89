package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"orchestrator/internal/config"
	"orchestrator/internal/process"
	"orchestrator/internal/readiness"
	"orchestrator/internal/server"
	"orchestrator/pkg/logging"
)

// Exit codes for CLI commands. Commands that run a child process exit with
// the child's own code instead.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeNotReady indicates a marker did not appear within its attempt budget.
	ExitCodeNotReady = 2
	// ExitCodeTimeout indicates a process was killed after its timeout.
	ExitCodeTimeout = 124
	// ExitCodeStartFailed indicates a process could not be started.
	ExitCodeStartFailed = 127
)

var (
	rootLogLevel  string
	rootLogFormat string
	rootConfig    string
	rootDefines   []string
	rootNoEnv     bool
)

// rootCmd represents the base command for the orchestrator application.
var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "Run external processes and supervise servers through marker files",
	Long: `orchestrator runs external commands with bounded time and captured output,
waits for servers to signal readiness through marker files, compares version
identifiers and resolves layered configuration.

Configuration is resolved from -D key=value flags, then the environment, then
the properties resource given with --config (or the orchestrator.configUrl key,
or ~/.orchestrator/orchestrator.properties when it exists).`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

// exitCodeError carries an exit code chosen by a command, for example the
// exit code of a child process.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "orchestrator version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var codeErr *exitCodeError
	if errors.As(err, &codeErr) {
		return codeErr.code
	}

	switch {
	case errors.Is(err, readiness.ErrNotReady), errors.Is(err, server.ErrExitedEarly):
		return ExitCodeNotReady
	case errors.Is(err, process.ErrTimeout):
		return ExitCodeTimeout
	case errors.Is(err, process.ErrStart):
		return ExitCodeStartFailed
	}

	return ExitCodeError
}

func initLogging(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(rootLogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(rootLogFormat)
	if err != nil {
		return err
	}
	logging.Init(level, format, cmd.ErrOrStderr())
	return nil
}

// parseKeyValues splits KEY=VALUE flag values.
func parseKeyValues(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --%s value %q, expected KEY=VALUE", flag, kv)
		}
		out[k] = v
	}
	return out, nil
}

// resolveConfiguration builds the configuration selected by the root flags.
func resolveConfiguration(cmd *cobra.Command) (*config.Configuration, error) {
	defines, err := parseKeyValues("define", rootDefines)
	if err != nil {
		return nil, err
	}

	r := config.NewResolver().SetAll(defines)
	if !rootNoEnv {
		r.WithEnvironment()
	}
	if rootConfig != "" {
		r.WithLocation(rootConfig)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return r.Resolve(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "Properties resource: a path, file:// URL or http(s):// URL")
	rootCmd.PersistentFlags().StringArrayVarP(&rootDefines, "define", "D", nil, "Explicit configuration value as key=value (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&rootNoEnv, "no-env", false, "Do not read configuration from environment variables")

	rootCmd.AddCommand(newVersionCmd())
}
