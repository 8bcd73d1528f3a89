package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"orchestrator/internal/readiness"
)

var (
	waitInterval time.Duration
	waitAttempts int
	waitWatch    bool
	waitQuiet    bool
	waitStopped  bool
)

var waitCmd = &cobra.Command{
	Use:   "wait <marker>",
	Short: "Wait for a marker file to appear",
	Long: `Polls for the existence of a marker file. The first check is immediate,
each following check waits --interval. After --attempts checks without the
marker, orchestrator exits with code 2.

Only the existence of the path is checked, never its content.`,
	Example: `  orchestrator wait --interval 1s --attempts 120 /var/run/app/ready
  orchestrator wait --stopped --watch /var/run/app/stopped`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func runWait(cmd *cobra.Command, args []string) error {
	marker := args[0]

	var opts []readiness.Option
	if waitWatch {
		opts = append(opts, readiness.WithWatch())
	}
	purpose := "ready"
	if waitStopped {
		purpose = "stopped"
	}
	opts = append(opts, readiness.WithPurpose(purpose))

	var s *spinner.Spinner
	if !waitQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = fmt.Sprintf(" Waiting for %s to become %s...", marker, purpose)
		s.Start()
	}

	sup := readiness.New(marker, waitInterval, waitAttempts, opts...)
	err := sup.Poll(cmd.Context())

	if s != nil {
		s.Stop()
	}
	if err != nil {
		return err
	}

	if !waitQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s after %d attempt(s)\n", marker, purpose, sup.Attempts())
	}
	return nil
}

func init() {
	waitCmd.Flags().DurationVar(&waitInterval, "interval", 500*time.Millisecond, "Time between checks")
	waitCmd.Flags().IntVar(&waitAttempts, "attempts", 60, "Maximum number of checks")
	waitCmd.Flags().BoolVar(&waitWatch, "watch", false, "Also watch the marker directory and check as soon as it changes")
	waitCmd.Flags().BoolVarP(&waitQuiet, "quiet", "q", false, "Print nothing; only set the exit code")
	waitCmd.Flags().BoolVar(&waitStopped, "stopped", false, "The marker signals a completed shutdown")

	rootCmd.AddCommand(waitCmd)
}
