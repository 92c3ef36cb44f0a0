// Package main provides the mxgraph CLI entry point.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hymao/mxgraph/pkg/config"
	"github.com/hymao/mxgraph/pkg/vocab"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mxgraph",
		Short: "mxgraph - phenotype propagation and character retrieval",
		Long: `mxgraph works on an ontology of specimens, taxa and morphological
character matrices stored as a property graph.

Commands:
  • propagate: copy per-taxon phenotype annotations onto specimens
  • characters: list the characters describing an anatomical concept`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("store", config.StoreMemory, "Graph store: memory or badger")
	flags.String("data-dir", "./data", "Badger data directory")
	flags.String("missing", "warn", "Broken determination chains: warn, ignore or fail")
	flags.String("metrics-file", "", "Write Prometheus metrics to this file when done")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mxgraph v%s (%s)\n", version, commit)
		},
	})

	// Propagate command
	propagateCmd := &cobra.Command{
		Use:   "propagate SRC DST",
		Short: "Propagate phenotype annotations from taxa to specimens",
		Long: `Load the graph document SRC and its imports, index specimens by taxon,
assert each character state's phenotypes on the specimens of the taxon and
write the result to DST.`,
		Args: cobra.ExactArgs(2),
		RunE: runPropagate,
	}
	propagateCmd.Flags().Bool("strict-denotes", false, "Only treat mx:denotes_phenotype_of restrictions as phenotypes")
	rootCmd.AddCommand(propagateCmd)

	// Characters command
	charactersCmd := &cobra.Command{
		Use:   "characters SRC [CONCEPT]",
		Short: "List the characters describing an anatomical concept",
		Long: fmt.Sprintf(`Load the graph document SRC and its imports, classify it and print the
identifiers of the characters whose states describe parts of CONCEPT, one
per line. CONCEPT defaults to %s.`, vocab.DefaultConcept),
		Args: cobra.RangeArgs(1, 2),
		RunE: runCharacters,
	}
	charactersCmd.Flags().Bool("json", false, "Print the identifiers as a JSON array")
	rootCmd.AddCommand(charactersCmd)

	// Init command
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	rootCmd.AddCommand(initCmd)

	return rootCmd
}
