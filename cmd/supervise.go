package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"orchestrator/internal/command"
	"orchestrator/internal/process"
	"orchestrator/internal/server"
	"orchestrator/pkg/logging"
)

var (
	superviseName          string
	superviseDir           string
	superviseReady         string
	superviseStopRequest   string
	superviseStopped       string
	superviseInterval      time.Duration
	superviseStartAttempts int
	superviseStopAttempts  int
	superviseWatch         bool
	superviseQuiet         bool
	superviseVersion       string
)

var superviseCmd = &cobra.Command{
	Use:   "supervise [flags] -- <executable> [args...]",
	Short: "Start a server, wait until it is ready and stop it on SIGINT or SIGTERM",
	Long: `Starts a long-running server and waits for it to create the --ready marker.
The server then runs until orchestrator receives SIGINT or SIGTERM, at which
point the --stop-request marker is created and orchestrator waits for the
--stopped marker and for the process to exit. A server that does not stop
within --stop-attempts checks is killed together with its process group.

If the server exits on its own, orchestrator exits with the server's code.`,
	Example: `  orchestrator supervise --ready /tmp/app/ready --stop-request /tmp/app/stop \
    --stopped /tmp/app/stopped -- ./bin/server --port 9000`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSupervise,
}

func runSupervise(cmd *cobra.Command, args []string) error {
	cfg := server.Config{
		Name:              superviseName,
		Command:           command.New(args[0]).AddArguments(args[1:]).SetDirectory(superviseDir),
		ReadyMarker:       superviseReady,
		StopRequestMarker: superviseStopRequest,
		StoppedMarker:     superviseStopped,
		PollInterval:      superviseInterval,
		StartAttempts:     superviseStartAttempts,
		StopAttempts:      superviseStopAttempts,
		WatchMarkers:      superviseWatch,
		Version:           superviseVersion,
	}
	if !superviseQuiet {
		cfg.Output = &process.WriterConsumer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
	}

	inst, err := server.New(cfg)
	if err != nil {
		return err
	}
	if v, ok := inst.Version(); ok {
		logging.Info("Supervise", "Supervising %s version %s (release: %t)", inst.Name(), v, v.IsRelease())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var s *spinner.Spinner
	if !superviseQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = fmt.Sprintf(" Starting %s...", inst.Name())
		s.Start()
	}
	err = inst.Start(ctx)
	if s != nil {
		s.Stop()
	}

	if err != nil {
		if errors.Is(err, server.ErrExitedEarly) {
			return err
		}
		// The process may still be running when the marker never appeared or
		// the wait was interrupted.
		if stopErr := inst.Stop(context.Background()); stopErr != nil {
			logging.Error("Supervise", stopErr, "Failed to stop %s", inst.Name())
		}
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s is ready (instance %s)\n", inst.Name(), inst.ID())

	select {
	case <-inst.Done():
		code, runErr := inst.Wait(context.Background())
		if runErr != nil {
			return runErr
		}
		if code != 0 {
			return &exitCodeError{code: code}
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Stopping %s...\n", inst.Name())
	if err := inst.Stop(context.Background()); err != nil {
		return err
	}
	return nil
}

func init() {
	superviseCmd.Flags().StringVar(&superviseName, "name", "", "Name used in log lines (default: executable name)")
	superviseCmd.Flags().StringVar(&superviseDir, "dir", "", "Working directory of the server")
	superviseCmd.Flags().StringVar(&superviseReady, "ready", "", "Marker the server creates when ready")
	superviseCmd.Flags().StringVar(&superviseStopRequest, "stop-request", "", "Marker created to ask the server to stop")
	superviseCmd.Flags().StringVar(&superviseStopped, "stopped", "", "Marker the server creates when stopped")
	superviseCmd.Flags().DurationVar(&superviseInterval, "interval", server.DefaultPollInterval, "Time between marker checks")
	superviseCmd.Flags().IntVar(&superviseStartAttempts, "start-attempts", server.DefaultStartAttempts, "Checks of the ready marker before giving up")
	superviseCmd.Flags().IntVar(&superviseStopAttempts, "stop-attempts", server.DefaultStopAttempts, "Checks of the stopped marker before giving up")
	superviseCmd.Flags().BoolVar(&superviseWatch, "watch", false, "Also watch marker directories for changes")
	superviseCmd.Flags().BoolVarP(&superviseQuiet, "quiet", "q", false, "Do not forward server output")
	superviseCmd.Flags().StringVar(&superviseVersion, "server-version", "", "Version of the server, validated and logged")
	_ = superviseCmd.MarkFlagRequired("ready")
	_ = superviseCmd.MarkFlagRequired("stop-request")
	superviseCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(superviseCmd)
}
