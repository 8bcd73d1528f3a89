package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"orchestrator/internal/version"
)

var gateMin string

var compareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Compare two versions and print -1, 0 or 1",
	Long: `Compares two versions of the form major[.minor[.patch]][-qualifier][.build].

At equal major.minor.patch a version without qualifier orders after one with a
qualifier (1.2.3 > 1.2.3-RC1); equal qualifiers are ordered by build number.`,
	Example: `  orchestrator compare 1.2.3 1.2.3-rc1     # prints 1
  orchestrator compare 1.2.3.5 1.2.3.10     # prints -1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := version.Parse(args[0])
		if err != nil {
			return err
		}
		b, err := version.Parse(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Compare(a, b))
		return nil
	},
}

var gateCmd = &cobra.Command{
	Use:   "gate <version> --min major.minor",
	Short: "Exit 0 when a version is at least major.minor",
	Long: `Checks only the first two numeric components: 6.0.0.81631 passes --min 6.0,
5.9.9 does not. A version below the minimum exits with code 1.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := version.Parse(args[0])
		if err != nil {
			return err
		}
		major, minor, err := parseMajorMinor(gateMin)
		if err != nil {
			return err
		}
		if !v.IsAtLeast(major, minor) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is older than %d.%d\n", v, major, minor)
			return &exitCodeError{code: ExitCodeError}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at least %d.%d\n", v, major, minor)
		return nil
	},
}

func parseMajorMinor(s string) (int, int, error) {
	majorText, minorText, _ := strings.Cut(strings.TrimSpace(s), ".")
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --min %q, expected major.minor", s)
	}
	minor := 0
	if minorText != "" {
		minor, err = strconv.Atoi(minorText)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --min %q, expected major.minor", s)
		}
	}
	return major, minor, nil
}

func init() {
	gateCmd.Flags().StringVar(&gateMin, "min", "", "Minimum major.minor version")
	_ = gateCmd.MarkFlagRequired("min")

	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(gateCmd)
}
