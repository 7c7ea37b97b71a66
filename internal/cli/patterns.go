package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewatch/internal/patterns"
)

var patternsYAML bool

// patternsCmd represents the patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the risk patterns",
	Long: `List the risk categories clauses are matched against, with severity
and description. Use --yaml to print the table in the format accepted by
--patterns, as a starting point for a custom table.

Example:
  clausewatch patterns
  clausewatch patterns --yaml > my-patterns.yaml
  clausewatch patterns --patterns my-patterns.yaml`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)

	patternsCmd.Flags().StringVar(&patternsFile, "patterns", "", "YAML file replacing the built-in risk patterns")
	patternsCmd.Flags().BoolVar(&patternsYAML, "yaml", false, "print the table as YAML")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	registry := patterns.Default()
	if patternsFile != "" {
		var err error
		if registry, err = patterns.LoadFile(patternsFile); err != nil {
			return err
		}
	}

	if patternsYAML {
		data, err := yaml.Marshal(map[string]any{"patterns": registry.Definitions()})
		if err != nil {
			return fmt.Errorf("marshal patterns: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for _, def := range registry.Definitions() {
		severityColor(def.Severity).Printf("%-6s ", def.Severity)
		bold.Printf("%s\n", def.Name)
		if def.Description != "" {
			fmt.Printf("       %s\n", def.Description)
		}
		dim.Printf("       %s\n", def.Pattern)
	}
	return nil
}

func severityColor(s patterns.Severity) *color.Color {
	switch s {
	case patterns.SeverityHigh:
		return color.New(color.FgRed, color.Bold)
	case patterns.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
