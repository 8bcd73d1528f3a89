package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"orchestrator/internal/config"
	pkgstrings "orchestrator/pkg/strings"
)

// maxValueWidth truncates long values in table output.
const maxValueWidth = 100

var (
	configOutput string
	configPrefix string
)

var configCmd = &cobra.Command{
	Use:   "config [key...]",
	Short: "Print the resolved configuration",
	Long: `Resolves the configuration from -D values, the environment and the
properties resource, expands ${key} placeholders and prints the result.

With keys as arguments only their values are printed, one per line; an unknown
key is an error.`,
	Example: `  orchestrator config --no-env --config ./orchestrator.properties
  orchestrator config -o yaml --prefix server.
  orchestrator config -D name=demo greeting`,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfiguration(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		for _, key := range args {
			v, ok := cfg.Get(key)
			if !ok {
				return fmt.Errorf("configuration key %q is not set", key)
			}
			fmt.Fprintln(out, v)
		}
		return nil
	}

	values := filterPrefix(cfg, configPrefix)
	switch configOutput {
	case "table":
		renderConfigTable(out, cfg, values)
		return nil
	case "yaml":
		data, err := yaml.Marshal(values)
		if err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format %q, expected table or yaml", configOutput)
	}
}

func filterPrefix(cfg *config.Configuration, prefix string) map[string]string {
	values := make(map[string]string)
	for _, k := range cfg.Keys() {
		if strings.HasPrefix(k, prefix) {
			values[k], _ = cfg.Get(k)
		}
	}
	return values
}

func renderConfigTable(out io.Writer, cfg *config.Configuration, values map[string]string) {
	if len(values) == 0 {
		fmt.Fprintf(out, "%s\n", text.FgYellow.Sprint("No configuration values found"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("KEY"),
		text.FgHiCyan.Sprint("VALUE"),
	})

	for _, key := range cfg.Keys() {
		value, ok := values[key]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{key, pkgstrings.TruncateCell(value, maxValueWidth)})
	}
	t.AppendFooter(table.Row{text.FgHiBlue.Sprint("Total"), len(values)})
	t.Render()
}

func init() {
	configCmd.Flags().StringVarP(&configOutput, "output", "o", "table", "Output format: table or yaml")
	configCmd.Flags().StringVar(&configPrefix, "prefix", "", "Only show keys starting with this prefix")

	rootCmd.AddCommand(configCmd)
}
